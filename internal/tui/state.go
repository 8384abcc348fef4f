package tui

import (
	"time"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/builds"
)

type Snapshot struct {
	Timestamp   time.Time
	Badge       badge.State
	LastPoll    time.Time
	PollError   string
	Finished    []builds.FinishedJob
	ServerURL   string
	UserID      string
	WindowHours int
	SortOrder   string
}
