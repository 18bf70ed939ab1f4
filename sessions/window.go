package sessions

import (
	"sync"
	"time"
)

// WindowStore persists the start of the local session window.
// Implementations must be safe for concurrent use.
type WindowStore interface {
	// Start returns the recorded window start, if any.
	Start() (time.Time, bool)
	// SetStart records a window start.
	SetStart(start time.Time)
	// Clear removes the recorded start.
	Clear()
}

// MemoryWindow is a WindowStore held in process memory.
type MemoryWindow struct {
	mu    sync.Mutex
	start time.Time
	set   bool
}

var _ WindowStore = (*MemoryWindow)(nil)

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{}
}

func (w *MemoryWindow) Start() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.start, w.set
}

func (w *MemoryWindow) SetStart(start time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.start = start
	w.set = true
}

func (w *MemoryWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.start = time.Time{}
	w.set = false
}
