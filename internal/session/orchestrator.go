package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sideffect263/netviz-backend/internal/models"
)

var (
	ErrEmptyCommand = errors.New("command is empty")
	ErrBusy         = errors.New("a command is already being processed")
)

// Scan progress phase labels, keyed by percentage thresholds.
const (
	labelDiscovering = "Discovering hosts"
	labelPortScan    = "Port scanning"
	labelServices    = "Service detection"
	labelFinalizing  = "Finalizing"
	labelComplete    = "Scan complete"
)

// View is the user-visible session state served to the dashboard.
type View struct {
	Messages       []models.Message `json:"messages"`
	IsProcessing   bool             `json:"isProcessing"`
	LastError      string           `json:"lastError,omitempty"`
	ProgressNote   string           `json:"progressNote,omitempty"`
	Scan           models.ScanState `json:"scan"`
	RawOutput      json.RawMessage  `json:"rawOutput,omitempty"`
	RawOutputRev   int              `json:"rawOutputRev"`
	ConversationID string           `json:"conversationId,omitempty"`
}

// Orchestrator owns the per-session command lifecycle: the transcript, the
// processing flag, the simulated scan progress and the raw tool output cache.
// All mutation happens either on Submit or on events read from the channel;
// the web layer only ever sees copies via View.
type Orchestrator struct {
	mu sync.RWMutex

	sessionID      string
	conversationID string
	client         *CommandClient

	messages     []models.Message
	processing   bool
	lastError    string
	progressNote string

	// events accumulated since the last submission; scan state and the raw
	// output cache are re-derived from this sequence on every event.
	events []models.Event

	scanning      bool
	scanTool      string
	scanStart     time.Time
	elapsed       int
	progress      float64
	phaseLabel    string
	scanHoldUntil time.Time
	holdFor       time.Duration

	rawOutput    json.RawMessage
	rawOutputRev int

	longRunning map[string]bool
	log         zerolog.Logger
}

func NewOrchestrator(sessionID string, client *CommandClient, longRunningTools []string, completeHold time.Duration, log zerolog.Logger) *Orchestrator {
	if completeHold == 0 {
		completeHold = 3 * time.Second
	}
	long := make(map[string]bool, len(longRunningTools))
	for _, name := range longRunningTools {
		long[strings.ToLower(name)] = true
	}

	return &Orchestrator{
		sessionID:   sessionID,
		client:      client,
		holdFor:     completeHold,
		longRunning: long,
		log:         log.With().Str("component", "session").Str("session_id", sessionID).Logger(),
	}
}

func (o *Orchestrator) SessionID() string { return o.sessionID }

// IsLongRunning reports whether a tool name belongs to the scanning tools
// that drive the simulated progress curve.
func (o *Orchestrator) IsLongRunning(tool string) bool {
	return o.longRunning[strings.ToLower(tool)]
}

// Submit appends the user message, clears prior result state and posts the
// command to the agent. While the submission is outstanding and until a
// terminal event arrives, further submissions are rejected.
func (o *Orchestrator) Submit(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return ErrEmptyCommand
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return ErrBusy
	}
	o.processing = true
	o.lastError = ""
	o.progressNote = ""
	o.clearScanLocked()
	o.appendMessageLocked(models.RoleUser, command)
	conversationID := o.conversationID
	o.mu.Unlock()

	newConversationID, err := o.client.Submit(ctx, command, o.sessionID, conversationID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		// submission-time failure is terminal: back to idle with the
		// server's message, or a generic one
		o.processing = false
		o.lastError = submissionErrorMessage(err)
		o.log.Warn().Err(err).Msg("command submission failed")
		return errors.New(o.lastError)
	}

	if newConversationID != "" {
		o.conversationID = newConversationID
	}

	o.log.Debug().Str("command", command).Msg("command submitted")
	return nil
}

func submissionErrorMessage(err error) string {
	msg := err.Error()
	if msg == "" || strings.Contains(msg, "context deadline exceeded") {
		return "Failed to reach the agent. Please try again."
	}
	return msg
}

// HandleEvent applies one channel event to the session state. Events are
// applied exactly once, in arrival order; the transcript and flags mutate per
// event, while the scan tool and the raw output cache are re-derived from the
// accumulated sequence so the same events always yield the same state.
func (o *Orchestrator) HandleEvent(ev models.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, ev)

	switch ev.Type {
	case models.EventCommandResult:
		o.appendMessageLocked(models.RoleAssistant, ev.Result)
		o.processing = false
		o.progressNote = ""

	case models.EventError:
		o.appendMessageLocked(models.RoleAssistant, "Error: "+ev.Error)
		o.lastError = ev.Error
		o.processing = false
		o.progressNote = ""

	case models.EventProgress:
		o.progressNote = ev.Message
	}

	o.deriveScanLocked()
}

// deriveScanLocked reconciles the stateful scan bookkeeping with the pure
// derivation over the event sequence. The timer and the progress curve keep
// their own clock; only the open/closed transitions come from the sequence.
func (o *Orchestrator) deriveScanLocked() {
	tool, open := ActiveScanTool(o.events, o.IsLongRunning)
	switch {
	case open && !o.scanning:
		o.scanning = true
		o.scanTool = tool
		o.scanStart = time.Now()
		o.elapsed = 0
		o.progress = 0
		o.phaseLabel = labelDiscovering
		o.scanHoldUntil = time.Time{}
	case open && o.scanning:
		o.scanTool = tool
	case !open && o.scanning:
		o.finishScanLocked()
	}

	if out := LatestToolOutput(o.events); len(out) > 0 && !models.OutputEqual(out, o.rawOutput) {
		o.rawOutput = out
		o.rawOutputRev++
	}
}

// Tick advances the simulated progress curve by one period. The increment
// shrinks as the bar fills and the percentage is capped below 100 while the
// scan is still running; 100 is only ever set on completion.
func (o *Orchestrator) Tick(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.scanning {
		o.elapsed = int(now.Sub(o.scanStart).Seconds())
		incr := progressIncrement(o.progress)
		if o.progress+incr > 99 {
			// creep toward the cap so the bar keeps moving without ever
			// reaching 100 while the scan is still running
			incr = (99.5 - o.progress) / 10
		}
		o.progress += incr
		o.phaseLabel = phaseLabel(o.progress)
		return
	}

	if !o.scanHoldUntil.IsZero() && now.After(o.scanHoldUntil) {
		o.progress = 0
		o.phaseLabel = ""
		o.elapsed = 0
		o.scanHoldUntil = time.Time{}
	}
}

func progressIncrement(p float64) float64 {
	switch {
	case p < 10:
		return 5
	case p < 30:
		return 3
	case p < 60:
		return 1
	default:
		return 0.5
	}
}

func phaseLabel(p float64) string {
	switch {
	case p < 20:
		return labelDiscovering
	case p < 40:
		return labelPortScan
	case p < 70:
		return labelServices
	default:
		return labelFinalizing
	}
}

func (o *Orchestrator) finishScanLocked() {
	o.scanning = false
	o.scanTool = ""
	o.progress = 100
	o.phaseLabel = labelComplete
	o.scanHoldUntil = time.Now().Add(o.holdFor)
}

// clearScanLocked resets scan state and the event window. Only called at
// submission and seed boundaries, so derivation restarts from an empty
// sequence.
func (o *Orchestrator) clearScanLocked() {
	o.scanning = false
	o.scanTool = ""
	o.progress = 0
	o.phaseLabel = ""
	o.elapsed = 0
	o.scanHoldUntil = time.Time{}
	o.events = nil
}

func (o *Orchestrator) appendMessageLocked(role models.Role, content string) {
	o.messages = append(o.messages, models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// SeedTranscript replaces the transcript with messages loaded from the
// conversation store. Only valid while idle.
func (o *Orchestrator) SeedTranscript(conversationID string, messages []models.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.processing {
		return ErrBusy
	}

	o.conversationID = conversationID
	o.messages = make([]models.Message, len(messages))
	copy(o.messages, messages)
	o.lastError = ""
	o.progressNote = ""
	o.clearScanLocked()
	return nil
}

// Messages returns a snapshot copy of the transcript.
func (o *Orchestrator) Messages() []models.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// View returns the full user-visible session state.
func (o *Orchestrator) View() View {
	o.mu.RLock()
	defer o.mu.RUnlock()

	messages := make([]models.Message, len(o.messages))
	copy(messages, o.messages)

	return View{
		Messages:     messages,
		IsProcessing: o.processing,
		LastError:    o.lastError,
		ProgressNote: o.progressNote,
		Scan: models.ScanState{
			IsScanning:      o.scanning,
			StartedAt:       o.scanStart,
			ElapsedSeconds:  o.elapsed,
			ProgressPercent: o.progress,
			PhaseLabel:      o.phaseLabel,
		},
		RawOutput:      o.rawOutput,
		RawOutputRev:   o.rawOutputRev,
		ConversationID: o.conversationID,
	}
}
