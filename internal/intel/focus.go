package intel

import (
	"sync"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// FocusManager tracks which single target the dashboard shows in detail.
// When auto-focus is on, the focus follows whatever target is currently
// being scanned; a manual selection overrides that until cleared.
type FocusManager struct {
	mu      sync.Mutex
	auto    bool
	manual  string
	focused string
}

func NewFocusManager(autoFocus bool) *FocusManager {
	return &FocusManager{auto: autoFocus}
}

// Update applies the auto-focus policy against a fresh snapshot and returns
// the resulting focused key.
func (f *FocusManager) Update(snap *models.IntelSnapshot) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.manual != "" {
		f.focused = f.manual
		return f.focused
	}
	if f.auto && snap.CurrentlyScanning != "" && snap.CurrentlyScanning != f.focused {
		f.focused = snap.CurrentlyScanning
	}
	return f.focused
}

// SetManual pins the focus to one target key.
func (f *FocusManager) SetManual(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manual = key
	f.focused = key
}

// ClearManual releases a manual selection; auto-focus takes over on the next
// Update.
func (f *FocusManager) ClearManual() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manual = ""
}

func (f *FocusManager) Focused() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}
