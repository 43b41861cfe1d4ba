package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"xfriends/models"
)

const eventPingPeriod = 30 * time.Second

// Subscribe opens the event stream of the logged-in user. The returned
// channel is closed when ctx ends or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	token := c.Token()
	if token == "" {
		return nil, fmt.Errorf("subscribe: %w", ErrUnauthorized)
	}

	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	events := make(chan models.Event, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		ticker := time.NewTicker(eventPingPeriod)
		defer ticker.Stop()
		ping, _ := json.Marshal(map[string]string{"action": "ping"})
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logrus.WithError(err).Debug("event stream closed")
				}
				return
			}
			var ev models.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
