package intel

import (
	"fmt"
	"strings"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// QuickAction is a suggested follow-up command for the focused target.
type QuickAction struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

const maxServiceActions = 4

// QuickActions derives follow-up suggestions from a target's discovered
// services, capped at four, plus an unconditional quick scan while the
// target is still only discovered.
func QuickActions(t *models.Target) []QuickAction {
	var actions []QuickAction

	for _, svc := range t.Services {
		if len(actions) >= maxServiceActions {
			break
		}
		switch strings.ToLower(svc.Service) {
		case "http", "https":
			actions = append(actions, QuickAction{
				Label:   fmt.Sprintf("Web vulnerability scan (port %d)", svc.Port),
				Command: fmt.Sprintf("run a web vulnerability scan against %s on port %d", t.Key, svc.Port),
			})
		case "ssh":
			actions = append(actions, QuickAction{
				Label:   fmt.Sprintf("SSH enumeration (port %d)", svc.Port),
				Command: fmt.Sprintf("enumerate the SSH service on %s port %d", t.Key, svc.Port),
			})
		case "mysql", "postgresql":
			actions = append(actions, QuickAction{
				Label:   fmt.Sprintf("SQL injection test (port %d)", svc.Port),
				Command: fmt.Sprintf("test %s for SQL injection on port %d", t.Key, svc.Port),
			})
		}
	}

	if t.Status == models.StatusDiscovered {
		actions = append(actions, QuickAction{
			Label:   "Quick scan",
			Command: fmt.Sprintf("quick scan %s", t.Key),
		})
	}

	return actions
}
