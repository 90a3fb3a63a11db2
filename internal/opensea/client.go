package opensea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	eventsPath       = "/events"
	defaultBaseURL   = "https://api.opensea.io/api/v1"
	defaultPageLimit = 100
	maxPageLimit     = 300
)

// Options parameterise the events adapter.
type Options struct {
	BaseURL         string
	APIKey          string
	Collection      string
	ContractAddress string
	Kind            EventKind
	PageLimit       int
	Timeout         time.Duration
	UserAgent       string
}

// Client issues one bounded events query per cycle and adapts the
// version-dependent response schema into RawEvent records.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]RawEvent]
}

// NewClient constructs an events adapter.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if opts.PageLimit <= 0 {
		opts.PageLimit = defaultPageLimit
	}
	if opts.PageLimit > maxPageLimit {
		opts.PageLimit = maxPageLimit
	}
	if !opts.Kind.Valid() {
		opts.Kind = KindSale
	}

	componentLogger := logger.With().Str("component", "opensea_client").Logger()

	breaker := gobreaker.NewCircuitBreaker[[]RawEvent](gobreaker.Settings{
		Name:     "opensea-events",
		Interval: time.Minute,
		Timeout:  time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("events circuit breaker state changed")
		},
	})

	return &Client{
		opts:    opts,
		logger:  componentLogger,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		breaker: breaker,
	}
}

// FetchEvents retrieves one page of events for the configured collection in
// server order (newest first).
func (c *Client) FetchEvents(ctx context.Context) ([]RawEvent, error) {
	if c.opts.Collection == "" {
		return nil, errors.New("collection slug not configured")
	}

	events, err := c.breaker.Execute(func() ([]RawEvent, error) {
		return c.fetchPage(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("events endpoint temporarily suspended after repeated failures: %w", err)
		}
		return nil, err
	}
	return events, nil
}

func (c *Client) fetchPage(ctx context.Context) ([]RawEvent, error) {
	query := url.Values{}
	query.Set("event_type", c.opts.Kind.apiEventType())
	query.Set("collection_slug", c.opts.Collection)
	query.Set("only_opensea", "true")
	query.Set("offset", "0")
	query.Set("limit", strconv.Itoa(c.opts.PageLimit))
	if c.opts.ContractAddress != "" {
		query.Set("asset_contract_address", c.opts.ContractAddress)
	}

	endpoint := c.baseURL + eventsPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "seawatcher/1.0")
	}
	if c.opts.APIKey != "" {
		req.Header.Set("X-API-KEY", c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || looksRateLimited(payload) {
		return nil, &RateLimitError{Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newParseError(resp.StatusCode, payload, "non-200 response")
	}

	var page eventsResponse
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, newParseError(resp.StatusCode, payload, "invalid json")
	}
	if page.AssetEvents == nil {
		return nil, newParseError(resp.StatusCode, payload, "missing asset_events field")
	}

	events := make([]RawEvent, 0, len(page.AssetEvents))
	for _, raw := range page.AssetEvents {
		events = append(events, c.adaptEvent(raw))
	}

	c.logger.Debug().
		Int("events", len(events)).
		Str("event_type", c.opts.Kind.apiEventType()).
		Msg("fetched events page")

	return events, nil
}

// adaptEvent flattens one loosely-typed source record into a RawEvent. Every
// nested field is optional at the source; absence maps to the zero value.
func (c *Client) adaptEvent(raw apiEvent) RawEvent {
	event := RawEvent{
		Kind:         c.opts.Kind,
		ID:           raw.ID.String(),
		RawTimestamp: raw.timestamp(),
	}

	if ts, err := NormalizeTimestamp(event.RawTimestamp); err == nil {
		event.OccurredAt = ts
	} else {
		c.logger.Warn().Str("event_id", event.ID).Str("raw", event.RawTimestamp).
			Msg("event timestamp could not be normalized; event will be skipped")
	}

	if raw.Asset != nil {
		event.AssetName = raw.Asset.Name
		event.TokenID = raw.Asset.TokenID
		event.ImageURL = raw.Asset.ImageURL
		event.Permalink = raw.Asset.Permalink
		if raw.Asset.Collection != nil {
			event.CollectionImageURL = raw.Asset.Collection.ImageURL
		}
	}

	if raw.PaymentToken != nil {
		event.PaymentSymbol = raw.PaymentToken.Symbol
	}

	switch c.opts.Kind {
	case KindListing:
		event.AmountWei = raw.StartingPrice
		event.Seller = accountAddress(raw.Seller)
	case KindBid:
		event.AmountWei = raw.BidAmount
		event.Bidder = accountAddress(raw.FromAccount)
		event.Seller = accountAddress(raw.Owner)
	default:
		event.AmountWei = raw.TotalPrice
		if raw.WinnerAccount != nil {
			event.Buyer = accountAddress(raw.WinnerAccount)
		}
		if raw.Transaction != nil {
			if event.Buyer == "" {
				event.Buyer = accountAddress(raw.Transaction.ToAccount)
			}
			event.Seller = accountAddress(raw.Transaction.FromAccount)
		}
		if event.Seller == "" {
			event.Seller = accountAddress(raw.Seller)
		}
	}

	return event
}

func accountAddress(account *apiAccount) string {
	if account == nil {
		return ""
	}
	return account.Address
}

type eventsResponse struct {
	AssetEvents []apiEvent `json:"asset_events"`
}

type apiEvent struct {
	ID             json.Number     `json:"id"`
	EventType      string          `json:"event_type"`
	CreatedDate    string          `json:"created_date"`
	EventTimestamp string          `json:"event_timestamp"`
	TotalPrice     string          `json:"total_price"`
	StartingPrice  string          `json:"starting_price"`
	BidAmount      string          `json:"bid_amount"`
	Asset          *apiAsset       `json:"asset"`
	PaymentToken   *apiToken       `json:"payment_token"`
	Transaction    *apiTransaction `json:"transaction"`
	Seller         *apiAccount     `json:"seller"`
	FromAccount    *apiAccount     `json:"from_account"`
	Owner          *apiAccount     `json:"owner"`
	WinnerAccount  *apiAccount     `json:"winner_account"`
}

func (e apiEvent) timestamp() string {
	if e.CreatedDate != "" {
		return e.CreatedDate
	}
	return e.EventTimestamp
}

type apiAsset struct {
	TokenID    string         `json:"token_id"`
	Name       string         `json:"name"`
	Permalink  string         `json:"permalink"`
	ImageURL   string         `json:"image_url"`
	Collection *apiCollection `json:"collection"`
}

type apiCollection struct {
	ImageURL string `json:"image_url"`
}

type apiToken struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type apiTransaction struct {
	ToAccount   *apiAccount `json:"to_account"`
	FromAccount *apiAccount `json:"from_account"`
}

type apiAccount struct {
	Address string `json:"address"`
}
