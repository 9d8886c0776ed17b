package polkadex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second

	// streamBuffer is the per-stream channel capacity. Messages beyond it
	// are dropped; consumers recover from gaps by refetching snapshots.
	streamBuffer = 256
)

// StreamMessage is one event delivered on a subscription stream. Data holds
// the inner JSON document the venue wrapped in the subscription envelope.
type StreamMessage struct {
	Stream string
	Data   []byte
}

// subscriptionQuery is the GraphQL subscription every stream runs; streams
// differ only in the name variable.
const subscriptionQuery = `
	subscription WebsocketStreamsMessage($name: String!) {
		websocket_streams(name: $name) {
			data
		}
	}
`

// Session is a WebSocket session multiplexing GraphQL subscription streams.
// It manages the connection lifecycle, restores subscriptions on reconnect
// and dispatches stream events to per-stream channels.
type Session struct {
	wsURL     string
	host      string
	authToken string
	logger    *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	// connDone is closed when conn is replaced, stopping the loops bound to
	// the superseded connection.
	connDone chan struct{}

	// Streams to restore on reconnect, keyed by stream name.
	subs map[string]chan StreamMessage

	// done is closed when the session is shut down.
	done chan struct{}
}

// NewSession creates a subscription session for the given WebSocket URL.
// Connect must be called before subscribing.
func NewSession(wsURL, authToken string, logger *slog.Logger) *Session {
	host := ""
	if u, err := url.Parse(wsURL); err == nil {
		host = u.Host
	}
	return &Session{
		wsURL:     wsURL,
		host:      host,
		authToken: authToken,
		logger:    logger.With(slog.String("component", "polkadex_ws")),
		subs:      make(map[string]chan StreamMessage),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and re-issues the start
// frame for every stream subscribed so far.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("polkadex/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polkadex/ws: connect: %w", err)
	}

	// Retire the previous connection and its loops before swapping in the
	// new one.
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.connDone != nil {
		close(s.connDone)
	}
	s.conn = conn
	s.connDone = make(chan struct{})

	// Set up pong handler for keep-alive.
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := s.sendFrame(wsFrame{Type: "connection_init"}); err != nil {
		conn.Close()
		return fmt.Errorf("polkadex/ws: init: %w", err)
	}

	// Start the read loop and ping loop for this connection.
	go s.readLoop(conn)
	go s.pingLoop(conn, s.connDone)

	// Restore any previous subscriptions after reconnect.
	for stream := range s.subs {
		if err := s.sendStart(stream); err != nil {
			return fmt.Errorf("polkadex/ws: restore subscription %s: %w", stream, err)
		}
	}

	return nil
}

// Subscribe opens the named stream and returns the channel its events are
// delivered on. The subscription survives reconnects until Close.
func (s *Session) Subscribe(ctx context.Context, stream string) (<-chan StreamMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("polkadex/ws: not connected")
	}
	if ch, ok := s.subs[stream]; ok {
		return ch, nil
	}

	ch := make(chan StreamMessage, streamBuffer)
	s.subs[stream] = ch

	if err := s.sendStart(stream); err != nil {
		delete(s.subs, stream)
		return nil, fmt.Errorf("polkadex/ws: subscribe %s: %w", stream, err)
	}

	return ch, nil
}

// Close shuts down the connection, stops the loops and closes every stream
// channel.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.done)

	for stream, ch := range s.subs {
		close(ch)
		delete(s.subs, stream)
	}

	if s.conn != nil {
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return s.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// wsFrame is the subscription protocol envelope.
type wsFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// sendStart issues the start frame for a stream. Caller must hold s.mu.
func (s *Session) sendStart(stream string) error {
	data, err := json.Marshal(graphqlRequest{
		Query:     subscriptionQuery,
		Variables: map[string]any{"name": stream},
	})
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"data": string(data),
		"extensions": map[string]any{
			"authorization": map[string]string{
				"host":          s.host,
				"Authorization": s.authToken,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal start payload: %w", err)
	}

	return s.sendFrame(wsFrame{Type: "start", ID: stream, Payload: payload})
}

// sendFrame writes a protocol frame. Caller must hold s.mu.
func (s *Session) sendFrame(frame wsFrame) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads protocol frames from its connection and dispatches stream
// data to the subscribed channels. On a read error it reconnects with
// exponential backoff, unless a newer connection already took over.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Check if we've been shut down.
			select {
			case <-s.done:
				return
			default:
			}

			s.mu.RLock()
			replaced := s.conn != conn
			s.mu.RUnlock()
			if replaced {
				return
			}

			s.logger.Warn("connection lost, reconnecting", slog.Any("error", err))
			s.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		s.handleFrame(message)
	}
}

// pingLoop keeps its connection alive with periodic pings until the session
// shuts down or the connection is replaced. WriteControl is safe against the
// data writes sendFrame issues under the session lock.
func (s *Session) pingLoop(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-connDone:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleFrame parses a protocol frame and routes data frames to the stream
// channel matching their subscription id.
func (s *Session) handleFrame(raw []byte) {
	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return // Silently drop unparseable frames.
	}

	switch frame.Type {
	case "data":
		var payload struct {
			Data struct {
				WebsocketStreams struct {
					Data string `json:"data"`
				} `json:"websocket_streams"`
			} `json:"data"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return
		}

		s.mu.RLock()
		ch, ok := s.subs[frame.ID]
		closed := s.closed
		s.mu.RUnlock()

		if !ok || closed {
			return
		}

		msg := StreamMessage{Stream: frame.ID, Data: []byte(payload.Data.WebsocketStreams.Data)}
		select {
		case ch <- msg:
		default:
			s.logger.Warn("stream buffer full, dropping event", slog.String("stream", frame.ID))
		}

	case "error":
		s.logger.Error("stream error frame",
			slog.String("stream", frame.ID),
			slog.String("payload", string(frame.Payload)))
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the session is closed.
func (s *Session) reconnect() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = reconnectDelay
	bo.MaxInterval = maxReconnectDelay

	for {
		delay := bo.NextBackOff()

		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.Connect(ctx)
		cancel()

		if err == nil {
			s.logger.Info("reconnected")
			return
		}
		s.logger.Warn("reconnect attempt failed", slog.Any("error", err))
	}
}
