package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideffect263/netviz-backend/internal/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeAgent upgrades the connection, records the register frame and then
// replays the given raw frames.
func fakeAgent(t *testing.T, frames []string, registered chan<- registerFrame) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var reg registerFrame
		if err := conn.ReadJSON(&reg); err != nil {
			t.Errorf("reading register frame: %v", err)
			return
		}
		if registered != nil {
			registered <- reg
		}

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				t.Errorf("writing frame: %v", err)
				return
			}
		}

		// keep the connection up until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForEvents(t *testing.T, s *Session, n int) []models.Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if events := s.Events(); len(events) >= n {
			return events
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %d", n, len(s.Events()))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestOpen_SendsRegisterHandshake(t *testing.T) {
	registered := make(chan registerFrame, 1)
	server := httptest.NewServer(fakeAgent(t, nil, registered))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	reg := <-registered
	assert.Equal(t, "register", reg.Type)
	assert.Equal(t, "session-1", reg.SessionID)
}

func TestSession_AppendsMatchingEvents(t *testing.T) {
	frames := []string{
		`{"type":"tool_start","sessionId":"session-1","toolName":"NmapScanner"}`,
		`{"type":"command_result","sessionId":"session-1","result":"done"}`,
	}
	server := httptest.NewServer(fakeAgent(t, frames, nil))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	events := waitForEvents(t, session, 2)
	assert.Equal(t, models.EventToolStart, events[0].Type)
	assert.Equal(t, "NmapScanner", events[0].ToolName)
	assert.Equal(t, models.EventCommandResult, events[1].Type)
	assert.Equal(t, "done", events[1].Result)
}

func TestSession_DropsFramesForOtherSessions(t *testing.T) {
	frames := []string{
		`{"type":"tool_start","sessionId":"someone-else","toolName":"NmapScanner"}`,
		`{"type":"command_result","sessionId":"session-1","result":"mine"}`,
	}
	server := httptest.NewServer(fakeAgent(t, frames, nil))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	events := waitForEvents(t, session, 1)
	require.Len(t, events, 1)
	assert.Equal(t, "mine", events[0].Result)
}

func TestSession_DropsMalformedFramesWithoutClosing(t *testing.T) {
	frames := []string{
		`this is not json`,
		`{"type":"command_result","sessionId":"session-1","result":"survived"}`,
	}
	server := httptest.NewServer(fakeAgent(t, frames, nil))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	events := waitForEvents(t, session, 1)
	assert.Equal(t, "survived", events[0].Result)
}

func TestSession_StampsReceivedAtAndMissingTimestamp(t *testing.T) {
	frames := []string{
		`{"type":"progress_update","sessionId":"session-1","message":"working"}`,
	}
	server := httptest.NewServer(fakeAgent(t, frames, nil))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	events := waitForEvents(t, session, 1)
	assert.False(t, events[0].ReceivedAt.IsZero())
	assert.Equal(t, events[0].ReceivedAt, events[0].Timestamp, "missing timestamp is assigned on arrival")
}

func TestSession_UpdatesDeliverPublishedEvents(t *testing.T) {
	frames := []string{
		`{"type":"error","sessionId":"session-1","error":"boom"}`,
	}
	server := httptest.NewServer(fakeAgent(t, frames, nil))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)
	defer session.Close()

	select {
	case ev := <-session.Updates():
		assert.Equal(t, models.EventError, ev.Type)
		assert.Equal(t, "boom", ev.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}

func TestSession_DoneClosesWhenServerDrops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		var reg registerFrame
		_ = conn.ReadJSON(&reg)
		conn.Close()
	}))
	defer server.Close()

	adapter := NewAdapter(wsURL(server), zerolog.Nop())
	session, err := adapter.Open(context.Background(), "session-1")
	require.NoError(t, err)

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not report the dropped connection")
	}
}

func TestOpen_DialFailure(t *testing.T) {
	adapter := NewAdapter("ws://127.0.0.1:1/ws", zerolog.Nop())

	_, err := adapter.Open(context.Background(), "session-1")
	assert.Error(t, err)
}
