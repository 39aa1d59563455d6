package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradegame/internal/game"
)

const (
	betPath     = "/tradegame/bet"
	cashoutPath = "/tradegame/cashout"
	balancePath = "/balance"

	maxResponseBytes = 1 << 20
)

// ServerError is an {error} payload or an unexpected status from the backend.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// Client calls the game backend on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) PlaceBet(ctx context.Context, req game.BetRequest) (game.BetResponse, error) {
	var resp game.BetResponse
	err := c.do(ctx, http.MethodPost, betPath, req, &resp)
	return resp, err
}

func (c *Client) Cashout(ctx context.Context, req game.CashoutRequest) (game.CashoutResponse, error) {
	var resp game.CashoutResponse
	err := c.do(ctx, http.MethodPost, cashoutPath, req, &resp)
	return resp, err
}

func (c *Client) Balance(ctx context.Context) (game.BalanceResponse, error) {
	var resp game.BalanceResponse
	err := c.do(ctx, http.MethodGet, balancePath, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	// The backend may answer 200 with an {error} payload. A body that is not
	// JSON leaves envelope empty and falls through to the status check.
	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error != "" {
		return &ServerError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{Status: resp.StatusCode}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
