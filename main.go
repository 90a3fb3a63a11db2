package main

import "nft-sales-alerts/internal/cli"

func main() {
	cli.Execute()
}
