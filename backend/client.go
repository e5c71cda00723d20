// Package backend talks to the TradeBull game API over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"tradebull/config"
	"tradebull/game"
)

var (
	// ErrBetInFlight is returned when a bet is submitted while another is pending.
	ErrBetInFlight = errors.New("a bet is already being submitted")
	// ErrInvalidBet is returned for bets the backend would reject outright.
	ErrInvalidBet = errors.New("invalid bet")
)

// HTTPError is a non-success response. Body is the raw response text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Body
}

// Detail returns the "detail" field of a JSON error body, or the raw body.
func (e *HTTPError) Detail() string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return e.Error()
}

// Account is the response of GET /init.
type Account struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

// MyBet is the response of GET /mybet.
type MyBet struct {
	RoundID int64           `json:"round_id"`
	Bet     *game.BetRecord `json:"bet"`
}

// BetRequest is the body of POST /bet.
type BetRequest struct {
	UserID    string    `json:"user_id"`
	Side      game.Side `json:"side"`
	Amount    float64   `json:"amount"`
	Insurance bool      `json:"insurance"`
}

// BetReceipt is the response of POST /bet.
type BetReceipt struct {
	RoundID      int64           `json:"round_id"`
	Balance      float64         `json:"balance"`
	Bet          *game.BetRecord `json:"bet,omitempty"`
	InsuranceFee float64         `json:"insurance_fee,omitempty"`
}

// Client is the series, account and bet client.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	betInFlight atomic.Bool
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.BackendRequestTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchSeries returns the current round snapshot.
func (c *Client) FetchSeries(ctx context.Context) (*game.RoundSnapshot, error) {
	var snap game.RoundSnapshot
	if err := c.get(ctx, "/series", nil, &snap); err != nil {
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}
	return &snap, nil
}

// FetchAccount returns the caller's balance, creating the account if needed.
func (c *Client) FetchAccount(ctx context.Context, userID string) (*Account, error) {
	var acc Account
	if err := c.get(ctx, "/init", url.Values{"user_id": {userID}}, &acc); err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return &acc, nil
}

// FetchMyBet returns the caller's bet in the current round. Bet is nil when none was placed.
func (c *Client) FetchMyBet(ctx context.Context, userID string) (*MyBet, error) {
	var my MyBet
	if err := c.get(ctx, "/mybet", url.Values{"user_id": {userID}}, &my); err != nil {
		return nil, fmt.Errorf("failed to fetch bet: %w", err)
	}
	return &my, nil
}

// FetchLastResult returns the caller's last settled bet, or nil.
func (c *Client) FetchLastResult(ctx context.Context, userID string) (*game.LastResult, error) {
	var payload struct {
		Result *game.LastResult `json:"result"`
	}
	if err := c.get(ctx, "/last_result", url.Values{"user_id": {userID}}, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch last result: %w", err)
	}
	return payload.Result, nil
}

// FetchHistory returns up to limit recently settled rounds.
func (c *Client) FetchHistory(ctx context.Context, limit int) ([]game.HistoryItem, error) {
	var payload struct {
		Items []game.HistoryItem `json:"items"`
	}
	if err := c.get(ctx, "/history", url.Values{"limit": {strconv.Itoa(limit)}}, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return payload.Items, nil
}

// PlaceBet submits a bet for the current round. Only one submission may be pending.
func (c *Client) PlaceBet(ctx context.Context, req BetRequest) (*BetReceipt, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("%w: side must be LONG or SHORT", ErrInvalidBet)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidBet)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidBet)
	}

	if !c.betInFlight.CompareAndSwap(false, true) {
		return nil, ErrBetInFlight
	}
	defer c.betInFlight.Store(false)

	var receipt BetReceipt
	if err := c.post(ctx, "/bet", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxBackendBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
