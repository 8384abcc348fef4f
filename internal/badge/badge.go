package badge

import (
	"sync"
	"time"
)

// ActiveColor is the background used while the counter shows new builds.
const ActiveColor = "#4688F1"

// Indicator is the small counter shown next to the app name. Setting empty
// text clears it.
type Indicator interface {
	SetText(text string)
	SetColor(color string)
}

// Clear empties the counter.
func Clear(i Indicator) {
	i.SetText("")
}

// State is a point-in-time copy of a Badge.
type State struct {
	Text      string
	Color     string
	UpdatedAt time.Time
}

// Badge is an in-process Indicator read by the TUI and the HTTP surface.
type Badge struct {
	mu    sync.Mutex
	state State
}

func New() *Badge {
	return &Badge{}
}

func (b *Badge) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Text = text
	b.state.UpdatedAt = time.Now()
}

func (b *Badge) SetColor(color string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Color = color
	b.state.UpdatedAt = time.Now()
}

func (b *Badge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
