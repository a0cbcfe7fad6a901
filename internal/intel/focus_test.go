package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sideffect263/netviz-backend/internal/models"
)

func TestFocusManager_AutoFollowsCurrentlyScanning(t *testing.T) {
	fm := NewFocusManager(true)

	focused := fm.Update(&models.IntelSnapshot{CurrentlyScanning: "10.0.0.1"})
	assert.Equal(t, "10.0.0.1", focused)

	focused = fm.Update(&models.IntelSnapshot{CurrentlyScanning: "10.0.0.2"})
	assert.Equal(t, "10.0.0.2", focused)
}

func TestFocusManager_ManualOverridesAuto(t *testing.T) {
	fm := NewFocusManager(true)
	fm.SetManual("example.com")

	focused := fm.Update(&models.IntelSnapshot{CurrentlyScanning: "10.0.0.1"})
	assert.Equal(t, "example.com", focused)

	fm.ClearManual()
	focused = fm.Update(&models.IntelSnapshot{CurrentlyScanning: "10.0.0.1"})
	assert.Equal(t, "10.0.0.1", focused)
}

func TestFocusManager_AutoDisabled(t *testing.T) {
	fm := NewFocusManager(false)

	focused := fm.Update(&models.IntelSnapshot{CurrentlyScanning: "10.0.0.1"})
	assert.Empty(t, focused)
}

func TestQuickActions_ServiceSuggestions(t *testing.T) {
	target := &models.Target{
		Key:    "10.0.0.1",
		Status: models.StatusAnalyzed,
		Services: []models.Service{
			{Port: 80, Service: "http"},
			{Port: 22, Service: "ssh"},
			{Port: 3306, Service: "mysql"},
		},
	}

	actions := QuickActions(target)
	assert.Len(t, actions, 3)
	assert.Contains(t, actions[0].Command, "web vulnerability scan")
	assert.Contains(t, actions[1].Command, "SSH")
	assert.Contains(t, actions[2].Command, "SQL injection")
}

func TestQuickActions_CappedAtFour(t *testing.T) {
	target := &models.Target{
		Key:    "10.0.0.1",
		Status: models.StatusAnalyzed,
		Services: []models.Service{
			{Port: 80, Service: "http"},
			{Port: 443, Service: "https"},
			{Port: 22, Service: "ssh"},
			{Port: 3306, Service: "mysql"},
			{Port: 5432, Service: "postgresql"},
		},
	}

	assert.Len(t, QuickActions(target), 4)
}

func TestQuickActions_QuickScanForDiscoveredTarget(t *testing.T) {
	target := &models.Target{Key: "example.com", Status: models.StatusDiscovered}

	actions := QuickActions(target)
	assert.Len(t, actions, 1)
	assert.Equal(t, "quick scan example.com", actions[0].Command)
}
