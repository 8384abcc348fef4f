package builds

import (
	"cmp"
	"fmt"
	"slices"
)

// attribution is one (job, build, cause) tuple of the flattened tree.
type attribution struct {
	job   *Job
	build *Build
	cause Cause
}

func (a attribution) key() string {
	return fmt.Sprintf("%s#%d", a.job.Name, a.build.Number)
}

// flatten walks jobs → builds → actions → causes in server order.
func flatten(jobs []Job) []attribution {
	var out []attribution
	for i := range jobs {
		job := &jobs[i]
		for j := range job.Builds {
			build := &job.Builds[j]
			for _, action := range build.Actions {
				for _, cause := range action.Causes {
					out = append(out, attribution{job: job, build: build, cause: cause})
				}
			}
		}
	}
	return out
}

func filter(in []attribution, keep func(attribution) bool) []attribution {
	out := in[:0:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// dedupe keeps the first tuple for each job/build pair. A build started by
// a user can carry the same user in several causes.
func dedupe(in []attribution) []attribution {
	seen := make(map[string]bool, len(in))
	return filter(in, func(a attribution) bool {
		k := a.key()
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

func triggeredBy(user string) func(attribution) bool {
	return func(a attribution) bool {
		return a.cause.UserID == user
	}
}

func concluded(b *Build) bool {
	if b.Building {
		return false
	}
	switch b.Result {
	case StatusSuccess, StatusFailed, StatusUnstable:
		return true
	}
	return false
}

// Finished returns the user's builds that concluded with a known result and
// started at or after cutoff.
func Finished(jobs []Job, user string, cutoff int64) []FinishedJob {
	matched := filter(flatten(jobs), triggeredBy(user))
	matched = filter(matched, func(a attribution) bool {
		return a.build.Timestamp >= cutoff && concluded(a.build)
	})
	matched = dedupe(matched)

	out := make([]FinishedJob, 0, len(matched))
	for _, a := range matched {
		out = append(out, FinishedJob{
			JobName:     a.job.Name,
			JobLink:     a.build.URL,
			Status:      a.build.Result,
			BuildNumber: a.build.Number,
		})
	}
	return out
}

// Inspect returns report entries for the user's builds whose finish time is
// at or after cutoff. Running builds are always reported; finished builds
// need a result.
func Inspect(jobs []Job, user string, cutoff int64) []Entry {
	matched := filter(flatten(jobs), triggeredBy(user))
	matched = filter(matched, func(a attribution) bool {
		if FinishTime(*a.build) < cutoff {
			return false
		}
		return a.build.Building || a.build.Result != ""
	})
	matched = dedupe(matched)

	out := make([]Entry, 0, len(matched))
	for _, a := range matched {
		out = append(out, toEntry(a))
	}
	return out
}

func toEntry(a attribution) Entry {
	e := Entry{
		JobName:   a.job.Name,
		JobLink:   a.build.URL,
		StartTime: a.build.Timestamp,
	}
	if a.build.Building {
		e.Status = StatusInProgress
		return e
	}
	e.Status = a.build.Result
	e.FinishTime = FinishTime(*a.build)
	return e
}

// SortEntries orders entries by start time. Equal start times keep their
// input order in both directions.
func SortEntries(entries []Entry, order SortOrder) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if order == Descending {
			return cmp.Compare(b.StartTime, a.StartTime)
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
}
