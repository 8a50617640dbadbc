// Package sdk is the Go client for the launchpad indexer API.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vsc-eco/vsc-launchpad/launchpad"
	"github.com/vsc-eco/vsc-launchpad/services/indexer"
)

// ErrNotFound reports an unknown market symbol.
var ErrNotFound = errors.New("not found")

// Client queries a running indexer over HTTP and subscribes to its
// WebSocket event feed.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health checks the indexer's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.get(ctx, "/health", &out); err != nil {
		return err
	}
	if out["status"] != "healthy" {
		return fmt.Errorf("indexer unhealthy: %q", out["status"])
	}
	return nil
}

// Markets lists all indexed markets.
func (c *Client) Markets(ctx context.Context) ([]indexer.MarketInfo, error) {
	var out []indexer.MarketInfo
	if err := c.get(ctx, "/api/v1/markets", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Market fetches one market by symbol.
func (c *Client) Market(ctx context.Context, symbol string) (indexer.MarketInfo, error) {
	var out indexer.MarketInfo
	err := c.get(ctx, "/api/v1/markets/"+url.PathEscape(symbol), &out)
	return out, err
}

// Trades fetches the retained trade history for a market.
func (c *Client) Trades(ctx context.Context, symbol string) ([]indexer.TradeInfo, error) {
	var out []indexer.TradeInfo
	if err := c.get(ctx, "/api/v1/markets/"+url.PathEscape(symbol)+"/trades", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubscribeEvents opens the WebSocket feed and streams events until the
// context is cancelled or the connection drops. The returned channel is
// closed on either.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan launchpad.Event, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	out := make(chan launchpad.Event, 64)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var ev launchpad.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
