// Package builds turns the Jenkins job tree into the records shown to a
// single user: finished-build counts for the badge and report entries for
// the inspector.
package builds

import "time"

const (
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusUnstable   = "UNSTABLE"
	StatusInProgress = "IN-PROGRESS"
)

const DefaultWindowHours = 1

type Job struct {
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Builds []Build `json:"builds"`
}

type Build struct {
	Number    int      `json:"number"`
	URL       string   `json:"url"`
	Building  bool     `json:"building"`
	Result    string   `json:"result"` // empty when Jenkins reports null
	Timestamp int64    `json:"timestamp"`
	Duration  int64    `json:"duration,omitempty"`
	Actions   []Action `json:"actions"`
}

type Action struct {
	Causes []Cause `json:"causes"`
}

type Cause struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// FinishedJob is one newly concluded build counted by the poller.
type FinishedJob struct {
	JobName     string
	JobLink     string
	Status      string
	BuildNumber int
}

// Entry is one line of the inspector report. FinishTime is zero while the
// build is in progress.
type Entry struct {
	JobName    string
	JobLink    string
	Status     string
	StartTime  int64
	FinishTime int64
}

func (e Entry) InProgress() bool {
	return e.Status == StatusInProgress
}

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortOrder maps stored values to a SortOrder, defaulting to ascending.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

// FinishTime is the build's comparison time: start plus duration once the
// build has a positive duration, otherwise its start.
func FinishTime(b Build) int64 {
	if b.Duration > 0 {
		return b.Timestamp + b.Duration
	}
	return b.Timestamp
}

func windowMillis(windowHours int) int64 {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	return int64(windowHours) * time.Hour.Milliseconds()
}

// PollCutoff is the later of the window start and the last time the user
// looked at the list, so a build already seen is never counted again.
func PollCutoff(now time.Time, windowHours int, lastViewed int64) int64 {
	return max(now.UnixMilli()-windowMillis(windowHours), lastViewed)
}

// InspectCutoff ignores the last-viewed marker: the whole window is shown.
func InspectCutoff(now time.Time, windowHours int) int64 {
	return now.UnixMilli() - windowMillis(windowHours)
}
