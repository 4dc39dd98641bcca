package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError represents a market-data API error with status code and body.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// singleOrArray handles endpoints that return a bare object for a single
// result and an array otherwise.
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

// tradierOption is the wire shape of one chain entry.
type tradierOption struct {
	OptionType   string  `json:"option_type"`
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	Greeks       *struct {
		MidIV float64 `json:"mid_iv"`
	} `json:"greeks,omitempty"`
}

type chainResponse struct {
	Options struct {
		Option singleOrArray[tradierOption] `json:"option"`
	} `json:"options"`
}

type expirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

type quotesResponse struct {
	Quotes struct {
		Quote singleOrArray[struct {
			Symbol string  `json:"symbol"`
			Last   float64 `json:"last"`
			Bid    float64 `json:"bid"`
			Ask    float64 `json:"ask"`
		}] `json:"quote"`
	} `json:"quotes"`
}

// TradierProvider fetches chain snapshots from the Tradier market-data API.
type TradierProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// Ensure TradierProvider implements Provider at compile time.
var _ Provider = (*TradierProvider)(nil)

// NewTradierProvider creates a provider against the live or sandbox API.
func NewTradierProvider(apiKey string, sandbox bool) *TradierProvider {
	baseURL := "https://api.tradier.com/v1"
	if sandbox {
		baseURL = "https://sandbox.tradier.com/v1"
	}
	return NewTradierProviderWithBaseURL(apiKey, baseURL)
}

// NewTradierProviderWithBaseURL creates a provider with a custom endpoint,
// used by tests to point at a local server.
func NewTradierProviderWithBaseURL(apiKey, baseURL string) *TradierProvider {
	return &TradierProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (p *TradierProvider) WithHTTPClient(c *http.Client) *TradierProvider {
	if c != nil {
		p.client = c
	}
	return p
}

// GetExpirations lists quoted expirations for the symbol.
func (p *TradierProvider) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp expirationsResponse
	if err := p.get(ctx, "/markets/options/expirations?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Expirations.Date, nil
}

// GetSnapshot fetches the chain for one expiration and splits it into
// sorted call and put sides.
func (p *TradierProvider) GetSnapshot(ctx context.Context, symbol, expiration string) (*Snapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("greeks", "true")
	var resp chainResponse
	if err := p.get(ctx, "/markets/options/chains?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	spot, err := p.GetSpot(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Symbol: symbol, Expiration: expiration, Spot: spot}
	for _, opt := range resp.Options.Option {
		q := Quote{
			Strike:       opt.Strike,
			Bid:          opt.Bid,
			Ask:          opt.Ask,
			Last:         opt.Last,
			Volume:       opt.Volume,
			OpenInterest: opt.OpenInterest,
		}
		if opt.Greeks != nil {
			q.ImpliedVol = opt.Greeks.MidIV
		}
		switch opt.OptionType {
		case string(RightCall):
			snap.Calls = append(snap.Calls, q)
		case string(RightPut):
			snap.Puts = append(snap.Puts, q)
		}
	}
	snap.Normalize()
	return snap, nil
}

// GetSpot returns the last trade price, falling back to the bid/ask mid.
func (p *TradierProvider) GetSpot(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	var resp quotesResponse
	if err := p.get(ctx, "/markets/quotes?"+params.Encode(), &resp); err != nil {
		return 0, err
	}
	if len(resp.Quotes.Quote) == 0 {
		return 0, fmt.Errorf("no quote returned for %s", symbol)
	}
	q := resp.Quotes.Quote[0]
	if q.Last > 0 {
		return q.Last, nil
	}
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2, nil
	}
	return 0, fmt.Errorf("quote for %s has no usable price", symbol)
}

func (p *TradierProvider) get(ctx context.Context, endpoint string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "Bearer "+p.apiKey)
	req.Header.Add("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return &APIError{Status: resp.StatusCode, Body: "failed to read error body"}
		}
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
