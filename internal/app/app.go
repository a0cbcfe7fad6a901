package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sideffect263/netviz-backend/internal/channel"
	"github.com/sideffect263/netviz-backend/internal/config"
	"github.com/sideffect263/netviz-backend/internal/conversations"
	"github.com/sideffect263/netviz-backend/internal/intel"
	"github.com/sideffect263/netviz-backend/internal/models"
	"github.com/sideffect263/netviz-backend/internal/narrator"
	"github.com/sideffect263/netviz-backend/internal/session"
)

// Broadcaster is the push side of the dashboard: one frame per view change.
type Broadcaster interface {
	Broadcast(updateType string, data any)
}

// App owns one session end to end: the realtime channel to the agent, the
// orchestrator, and the derived analysis and intelligence views. Every view
// is recomputed from the full event or message log on each change; at the
// scale of one interactive session the O(n) rescan is the accepted cost of
// keeping the logs the single source of truth.
type App struct {
	cfg     *config.Config
	adapter *channel.Adapter
	orch    *session.Orchestrator
	engine  *intel.Engine
	focus   *intel.FocusManager
	store   *conversations.Client

	mu        sync.RWMutex
	chSession *channel.Session
	analysis  []models.AnalysisEntry
	snap      *models.IntelSnapshot

	hub Broadcaster
	log zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) *App {
	sessionID := uuid.NewString()
	engine := intel.NewEngine()

	return &App{
		cfg:     cfg,
		adapter: channel.NewAdapter(cfg.Agent.ChannelURL, log),
		orch: session.NewOrchestrator(
			sessionID,
			session.NewCommandClient(cfg.Agent.CommandURL, 0),
			cfg.Scan.LongRunningTools,
			cfg.Scan.CompleteHold,
			log,
		),
		engine: engine,
		focus:  intel.NewFocusManager(true),
		store: conversations.NewClient(conversations.ClientConfig{
			BaseURL: cfg.Conversations.BaseURL,
			Token:   cfg.Conversations.Token,
		}),
		snap: engine.Analyze(nil),
		log:  log.With().Str("component", "app").Logger(),
	}
}

// SetBroadcaster wires the web hub in. Must be called before Run.
func (a *App) SetBroadcaster(hub Broadcaster) { a.hub = hub }

func (a *App) SessionID() string { return a.orch.SessionID() }

// Run opens the realtime channel and drives the derivation loop until the
// context is cancelled or the channel drops. A dropped channel simply stops
// delivering events; there is no reconnect.
func (a *App) Run(ctx context.Context) error {
	chSession, err := a.adapter.Open(ctx, a.orch.SessionID())
	if err != nil {
		return errors.Wrap(err, "opening realtime channel")
	}
	defer chSession.Close()

	a.mu.Lock()
	a.chSession = chSession
	a.mu.Unlock()

	ticker := time.NewTicker(a.cfg.Scan.TickInterval)
	defer ticker.Stop()

	updates := chSession.Updates()

	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				a.log.Warn().Msg("realtime channel stopped delivering events")
				return nil
			}
			a.orch.HandleEvent(ev)
			a.recompute()
			a.broadcastAll()

		case now := <-ticker.C:
			a.orch.Tick(now)
			if view := a.orch.View(); view.Scan.IsScanning || view.Scan.ProgressPercent > 0 {
				a.broadcast("session", view)
			}

		case <-chSession.Done():
			a.log.Warn().Msg("realtime channel closed")
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// recompute rebuilds the narrator feed from the event log and the intel
// snapshot from the transcript.
func (a *App) recompute() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chSession != nil {
		a.analysis = narrator.Narrate(a.chSession.Events())
	}
	a.snap = a.engine.Analyze(a.orch.Messages())
	a.focus.Update(a.snap)
}

func (a *App) broadcastAll() {
	a.broadcast("session", a.orch.View())
	a.broadcast("analysis", a.AnalysisFeed())
	a.broadcast("intel", a.IntelSnapshot())
}

func (a *App) broadcast(updateType string, data any) {
	if a.hub != nil {
		a.hub.Broadcast(updateType, data)
	}
}

// --- ViewSource ---

func (a *App) SessionView() session.View { return a.orch.View() }

func (a *App) AnalysisFeed() []models.AnalysisEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.AnalysisEntry, len(a.analysis))
	copy(out, a.analysis)
	return out
}

func (a *App) IntelSnapshot() *models.IntelSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

func (a *App) TargetDetail(key string) (*models.Target, []intel.QuickAction, bool) {
	snap := a.IntelSnapshot()
	target, ok := snap.TargetByKey(key)
	if !ok {
		return nil, nil, false
	}
	return target, intel.QuickActions(target), true
}

func (a *App) SubmitCommand(ctx context.Context, command string) error {
	err := a.orch.Submit(ctx, command)
	a.recompute()
	a.broadcastAll()
	return err
}

func (a *App) SetFocus(key string) {
	a.focus.SetManual(key)
	a.broadcast("focus", map[string]string{"focused": key})
}

func (a *App) ClearFocus() {
	a.focus.ClearManual()
	a.broadcast("focus", map[string]string{"focused": a.focus.Focused()})
}

func (a *App) FocusedTarget() string { return a.focus.Focused() }

// --- conversation store passthrough ---

func (a *App) ListConversations(ctx context.Context) ([]conversations.Conversation, error) {
	return a.store.List(ctx)
}

// LoadConversation replaces the transcript with a stored conversation and
// rebuilds the intelligence views from it.
func (a *App) LoadConversation(ctx context.Context, id string) error {
	conv, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.orch.SeedTranscript(conv.ID, conv.Messages); err != nil {
		return err
	}
	a.recompute()
	a.broadcastAll()
	return nil
}

func (a *App) RenameConversation(ctx context.Context, id, title string) error {
	return a.store.UpdateTitle(ctx, id, title)
}

func (a *App) DeleteConversation(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}
