package session

import (
	"encoding/json"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// ActiveScanTool reports which long-running tool, if any, is still open in
// the event sequence: a tool_start with no matching tool_end and no terminal
// command_result or error after it. Pure over the sequence, so repeated
// derivations from the same events always agree.
func ActiveScanTool(events []models.Event, isLongRunning func(string) bool) (string, bool) {
	open := ""
	for _, ev := range events {
		switch ev.Type {
		case models.EventToolStart:
			if isLongRunning(ev.ToolName) {
				open = ev.ToolName
			}
		case models.EventToolEnd:
			if ev.ToolName == open {
				open = ""
			}
		case models.EventCommandResult, models.EventError:
			open = ""
		}
	}
	return open, open != ""
}

// LatestToolOutput scans the sequence from the end and returns the most
// recent tool_end payload, or nil when no tool has produced output yet.
func LatestToolOutput(events []models.Event) json.RawMessage {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Type == models.EventToolEnd && len(ev.Output) > 0 {
			return ev.Output
		}
	}
	return nil
}
