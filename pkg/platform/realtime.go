package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"anoa.com/isfportal/pkg/logger"
	"github.com/gorilla/websocket"
)

// ChangeEvent is one row-level change on a table.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// Subscribe opens the change feed of table and calls fn for every change
// until the returned subscription is released or the connection drops.
// fn runs on the connection's reader goroutine and must not release the
// subscription itself.
func (c *Client) Subscribe(ctx context.Context, table string, fn func(ChangeEvent)) (*Subscription, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/realtime/v1/" + url.PathEscape(table)
	if s := c.Auth.Session(); s != nil {
		u.RawQuery = url.Values{"token": {s.AccessToken}}.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, err
	}

	var (
		closing bool
		mu      sync.Mutex
	)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				mu.Lock()
				expected := closing
				mu.Unlock()
				if !expected {
					logger.Warn().Err(err).Str("table", table).Msg("realtime connection closed")
				}
				return
			}

			var event ChangeEvent
			if err := json.Unmarshal(message, &event); err != nil {
				logger.Warn().Err(err).Str("table", table).Msg("malformed change event")
				continue
			}
			fn(event)
		}
	}()

	return &Subscription{stop: func() {
		mu.Lock()
		closing = true
		mu.Unlock()
		_ = conn.Close()
		<-done
	}}, nil
}
