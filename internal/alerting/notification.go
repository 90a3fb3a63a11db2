package alerting

import (
	"context"
	"time"
)

// Notification is a channel-ready message payload derived from one marketplace
// event. It mirrors the shape of a Discord rich embed plus the webhook-level
// display identity, and is never persisted.
type Notification struct {
	Username  string
	AvatarURL string

	Title     string
	URL       string
	Color     int
	Author    Author
	Thumbnail string
	Image     string
	Fields    []Field
	Footer    Footer
	Timestamp time.Time
}

// Author is the embed branding block.
type Author struct {
	Name    string
	URL     string
	IconURL string
}

// Field is one name/value pair in the embed body.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Footer is the embed footer line.
type Footer struct {
	Text    string
	IconURL string
}

// Channel is an opaque destination for notifications.
type Channel interface {
	// Name identifies the channel in logs without exposing credentials.
	Name() string
	// Send delivers one notification.
	Send(ctx context.Context, note Notification) error
}
