package alerting

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"nft-sales-alerts/internal/opensea"
)

const (
	defaultBrandName   = "OpenSea Bot"
	defaultBrandLink   = "https://opensea.io"
	defaultBrandIcon   = "https://files.readme.io/566c72b-opensea-logomark-full-colored.png"
	defaultAccentColor = 0x0099ff
	etherSymbol        = "Ξ"
	placeholderName    = "Unnamed asset"
)

var weiPerEther = decimal.NewFromBigInt(big.NewInt(params.Ether), 0)

// FormatterOptions carry the configurable display overrides.
type FormatterOptions struct {
	BrandName    string
	BrandIconURL string
	BrandLink    string
	ThumbnailURL string
	Color        int
	Username     string
	AvatarURL    string
}

// Formatter maps raw marketplace events into notifications. Format is a total
// function: missing optional fields render as placeholders or are omitted,
// never raised.
type Formatter struct {
	opts FormatterOptions
}

// NewFormatter constructs a formatter, filling unset options with the stock
// marketplace branding.
func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.BrandName == "" {
		opts.BrandName = defaultBrandName
	}
	if opts.BrandIconURL == "" {
		opts.BrandIconURL = defaultBrandIcon
	}
	if opts.BrandLink == "" {
		opts.BrandLink = defaultBrandLink
	}
	if opts.Color == 0 {
		opts.Color = defaultAccentColor
	}
	return &Formatter{opts: opts}
}

// Format builds the notification for one event.
func (f *Formatter) Format(event opensea.RawEvent) Notification {
	name := event.AssetName
	if name == "" {
		name = placeholderName
	}

	note := Notification{
		Username:  f.opts.Username,
		AvatarURL: f.opts.AvatarURL,
		URL:       event.Permalink,
		Color:     f.opts.Color,
		Author: Author{
			Name:    f.opts.BrandName,
			URL:     f.opts.BrandLink,
			IconURL: f.opts.BrandIconURL,
		},
		Thumbnail: f.thumbnail(event),
		Image:     event.ImageURL,
		Timestamp: event.OccurredAt,
	}

	amount := FormatAmount(event.AmountWei, event.PaymentSymbol)
	fields := []Field{
		{Name: "Name", Value: name},
		{Name: "Amount", Value: amount},
	}

	switch event.Kind {
	case opensea.KindListing:
		note.Title = name + " listed for sale"
		note.Footer = Footer{Text: "Listed on OpenSea", IconURL: f.opts.BrandIconURL}
		fields = appendAddressField(fields, "Seller", event.Seller)
	case opensea.KindBid:
		note.Title = name + " received a bid"
		note.Footer = Footer{Text: "Bid on OpenSea", IconURL: f.opts.BrandIconURL}
		fields = appendAddressField(fields, "Bidder", event.Bidder)
		fields = appendAddressField(fields, "Seller", event.Seller)
	default:
		note.Title = name + " sold!"
		note.Footer = Footer{Text: "Sold on OpenSea", IconURL: f.opts.BrandIconURL}
		fields = appendAddressField(fields, "Buyer", event.Buyer)
		fields = appendAddressField(fields, "Seller", event.Seller)
	}

	note.Fields = fields
	return note
}

func (f *Formatter) thumbnail(event opensea.RawEvent) string {
	if f.opts.ThumbnailURL != "" {
		return f.opts.ThumbnailURL
	}
	return event.CollectionImageURL
}

// The destination platform rejects empty field values, so absent addresses
// drop the field entirely.
func appendAddressField(fields []Field, name, address string) []Field {
	if address == "" {
		return fields
	}
	return append(fields, Field{Name: name, Value: address})
}

// FormatAmount converts a smallest-unit integer amount into a human-scaled
// decimal string with the payment token symbol appended. Absent, zero, and
// unparseable amounts all render as "0".
func FormatAmount(wei, symbol string) string {
	value := decimal.Zero
	if wei != "" {
		if parsed, err := decimal.NewFromString(wei); err == nil {
			value = parsed
		}
	}

	rendered := value.Div(weiPerEther).String()

	if symbol == "" {
		return rendered + etherSymbol
	}
	return rendered + " " + symbol
}

// EtherAmount returns the amount scaled to ether for persistence, or zero when
// the source amount is absent or unparseable.
func EtherAmount(wei string) decimal.Decimal {
	if wei == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(wei)
	if err != nil {
		return decimal.Zero
	}
	return parsed.Div(weiPerEther)
}
