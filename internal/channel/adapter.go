package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sideffect263/netviz-backend/internal/broker"
	"github.com/sideffect263/netviz-backend/internal/models"
)

// Adapter owns the realtime channel to the agent. Each Open dials one
// websocket connection, performs the register handshake and returns a handle
// over that session's growing event sequence.
//
// There is deliberately no reconnect logic: a dropped connection stops
// delivering events and the session handle reports itself closed.
type Adapter struct {
	url    string
	dialer *websocket.Dialer
	broker *broker.Broker[models.Event]
	log    zerolog.Logger
}

func NewAdapter(channelURL string, log zerolog.Logger) *Adapter {
	return &Adapter{
		url:    channelURL,
		dialer: websocket.DefaultDialer,
		broker: broker.New[models.Event](256),
		log:    log.With().Str("component", "channel").Logger(),
	}
}

type registerFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// Open dials the channel and registers sessionID. Frames for other sessions
// are discarded; malformed frames are logged and dropped without closing the
// connection.
func (a *Adapter) Open(ctx context.Context, sessionID string) (*Session, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dialing realtime channel")
	}

	if err := conn.WriteJSON(registerFrame{Type: string(models.EventRegister), SessionID: sessionID}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "sending register frame")
	}

	s := &Session{
		id:     sessionID,
		conn:   conn,
		broker: a.broker,
		done:   make(chan struct{}),
		log:    a.log.With().Str("session_id", sessionID).Logger(),
	}

	go s.readPump()

	a.log.Info().Str("session_id", sessionID).Msg("session registered on realtime channel")
	return s, nil
}

// Session is one registered connection plus its append-only event sequence.
type Session struct {
	id     string
	conn   *websocket.Conn
	broker *broker.Broker[models.Event]

	mu     sync.RWMutex
	events []models.Event

	closeOnce sync.Once
	done      chan struct{}
	log       zerolog.Logger
}

func (s *Session) ID() string { return s.id }

// Events returns a snapshot copy of the event sequence so far. Consumers
// derive their views from snapshots and never mutate them.
func (s *Session) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Updates returns the notification channel for this session. One element is
// delivered per appended event.
func (s *Session) Updates() <-chan models.Event {
	return s.broker.Subscribe(s.id)
}

// Done is closed when the connection stops delivering events.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readPump() {
	defer func() {
		s.Close()
		s.broker.CloseTopic(s.id)
		close(s.done)
		s.log.Info().Msg("realtime channel closed")
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		// handshake echoes are not part of the event log
		if ev.Type == models.EventRegister || ev.Type == "" {
			continue
		}

		if ev.SessionID != s.id {
			s.log.Debug().Str("frame_session", ev.SessionID).Msg("dropping frame for other session")
			continue
		}

		ev.ReceivedAt = time.Now()
		if ev.Timestamp.IsZero() {
			ev.Timestamp = ev.ReceivedAt
		}

		s.mu.Lock()
		s.events = append(s.events, ev)
		s.mu.Unlock()

		if !s.broker.Publish(s.id, ev) {
			s.log.Warn().Str("type", string(ev.Type)).Msg("subscriber buffer full, notification dropped")
		}
	}
}
