// client.go talks to the external payment system: one POST to open a
// withdrawal, one GET per status poll.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wireskip/contract/api"
)

// DefaultTimeout bounds every payment system call.
const DefaultTimeout = 10 * time.Second

// Client is an HTTP client for one payment system endpoint. It is
// immutable and safe for concurrent use.
type Client struct {
	client   *http.Client
	endpoint string
}

// NewClient creates a client for the payment system at endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		client:   &http.Client{Timeout: DefaultTimeout},
		endpoint: endpoint,
	}
}

// CreateWithdrawal opens a withdrawal with the payment system and
// returns its record, including the initial state.
func (c *Client) CreateWithdrawal(ctx context.Context, wr *api.WithdrawalRequest) (*api.Withdrawal, error) {
	body, err := json.Marshal(wr)
	if err != nil {
		return nil, fmt.Errorf("payout: marshal withdrawal request: %w", err)
	}
	path, err := url.JoinPath(c.endpoint, "withdrawals")
	if err != nil {
		return nil, fmt.Errorf("payout: join endpoint path: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payout: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payout: payment system unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, refusal(resp)
	}
	var w api.Withdrawal
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("payout: decode withdrawal: %w", err)
	}
	return &w, nil
}

// WithdrawalState polls the state of a previously opened withdrawal.
func (c *Client) WithdrawalState(ctx context.Context, id string) (*api.WithdrawalStateData, error) {
	path, err := url.JoinPath(c.endpoint, "withdrawals", id)
	if err != nil {
		return nil, fmt.Errorf("payout: join endpoint path: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("payout: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payout: payment system unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, refusal(resp)
	}
	var sd api.WithdrawalStateData
	if err := json.NewDecoder(resp.Body).Decode(&sd); err != nil {
		return nil, fmt.Errorf("payout: decode withdrawal state: %w", err)
	}
	return &sd, nil
}

// refusal turns a non-200 payment system answer into an error, keeping
// the remote reason when the body carries one.
func refusal(resp *http.Response) error {
	var st api.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil || st.Description == "" {
		return fmt.Errorf("payout: payment system returned %s", resp.Status)
	}
	return fmt.Errorf("payout: payment system refused: %s", st.Description)
}
