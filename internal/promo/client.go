// Package promo talks to the external promo/referral-credit service. The
// service is the source of truth for codes; this client only looks them up.
package promo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	ErrUnknownCode  = errors.New("unknown promo code")
	ErrNotAvailable = errors.New("promo service unavailable")
)

// Discount is the promo service's answer for one code. Exactly one of
// PercentBps and AmountCents is expected to be non-zero.
type Discount struct {
	Code        string     `json:"code"`
	PercentBps  int64      `json:"percent_bps"`
	AmountCents int64      `json:"amount_cents"`
	Consumed    bool       `json:"consumed"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Usable reports whether the discount can still reduce a cart: expired or
// already-consumed credits are treated as absent by callers.
func (d *Discount) Usable(now time.Time) bool {
	if d == nil || d.Consumed {
		return false
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return false
	}
	return d.PercentBps > 0 || d.AmountCents > 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.HTTPClient.Timeout = 5 * time.Second
	retryClient.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: retryClient.StandardClient(),
	}
}

// Lookup fetches the discount for a code on behalf of a customer. An unknown
// code is ErrUnknownCode; transport and server failures are ErrNotAvailable
// so callers can degrade to "no discount applied".
func (c *Client) Lookup(ctx context.Context, code string, customerID int64) (*Discount, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrNotAvailable
	}

	url := fmt.Sprintf("%s/api/promo/%s?customer=%d", c.baseURL, neturl.PathEscape(code), customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrNotAvailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUnknownCode
	default:
		return nil, ErrNotAvailable
	}

	var discount Discount
	if err := json.NewDecoder(resp.Body).Decode(&discount); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &discount, nil
}
