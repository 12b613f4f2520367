package apiclient

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"skippy.dog/server/internal/realtime"
)

// Feed holds one websocket connection to the message-event endpoint and fans
// each event out to every registered handler. It satisfies msgsync.Feed; the
// sync components each subscribe independently and filter for themselves.
type Feed struct {
	wsURL string

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[int]func(realtime.MessageEvent)
	nextID   int
	closed   bool
}

// NewFeed derives the websocket URL from the API base URL and the session
// token. The connection is opened lazily on the first Subscribe.
func NewFeed(baseURL, token string) (*Feed, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/messages/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)

	return &Feed{
		wsURL:    u.String(),
		handlers: make(map[int]func(realtime.MessageEvent)),
	}, nil
}

func (f *Feed) Subscribe(handler func(realtime.MessageEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("feed is closed")
	}

	if f.conn == nil {
		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect feed: %w", err)
		}
		f.conn = conn
		go f.readLoop(conn)
	}

	id := f.nextID
	f.nextID++
	f.handlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}, nil
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			closed := f.closed
			if f.conn == conn {
				f.conn = nil
			}
			f.mu.Unlock()
			if !closed {
				log.Printf("[apiclient] feed connection lost: %v", err)
				f.reconnect()
			}
			return
		}

		var ev realtime.MessageEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("[apiclient] failed to decode event: %v", err)
			continue
		}

		f.mu.Lock()
		handlers := make([]func(realtime.MessageEvent), 0, len(f.handlers))
		for _, h := range f.handlers {
			handlers = append(handlers, h)
		}
		f.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

// reconnect retries with a flat backoff until the feed is closed or the dial
// succeeds. Events published while disconnected are lost; the sync components
// recover via their authoritative reloads.
func (f *Feed) reconnect() {
	for {
		time.Sleep(2 * time.Second)

		f.mu.Lock()
		if f.closed || len(f.handlers) == 0 {
			f.mu.Unlock()
			return
		}
		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
		if err != nil {
			f.mu.Unlock()
			log.Printf("[apiclient] feed reconnect failed: %v", err)
			continue
		}
		f.conn = conn
		f.mu.Unlock()

		go f.readLoop(conn)
		return
	}
}

func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.handlers = make(map[int]func(realtime.MessageEvent))
	if f.conn != nil {
		err := f.conn.Close()
		f.conn = nil
		return err
	}
	return nil
}
