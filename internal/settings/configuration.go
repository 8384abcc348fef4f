package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcin-skalski/jobcheck/internal/builds"
)

const (
	KeyServerURL   = "serverUrl"
	KeyUserID      = "userId"
	KeyWindowHours = "windowHours"
	KeySortOrder   = "sortOrder"
	KeyLastViewed  = "lastViewedMarker"
)

// Configuration is what the user has saved in the sync scope.
type Configuration struct {
	ServerURL   string
	UserID      string
	WindowHours int
	SortOrder   builds.SortOrder
}

// LoadConfiguration reads the sync scope. Missing or non-numeric window
// values fall back to one hour, a missing sort order to ascending.
func LoadConfiguration(ctx context.Context, s Store) (Configuration, error) {
	vals, err := s.Get(ctx, ScopeSync, KeyServerURL, KeyUserID, KeyWindowHours, KeySortOrder)
	if err != nil {
		return Configuration{}, fmt.Errorf("load configuration: %w", err)
	}

	return Configuration{
		ServerURL:   vals[KeyServerURL],
		UserID:      vals[KeyUserID],
		WindowHours: ParseWindowHours(vals[KeyWindowHours]),
		SortOrder:   builds.ParseSortOrder(vals[KeySortOrder]),
	}, nil
}

// ParseWindowHours reads a stored window value, returning the default for
// anything that is not a positive integer.
func ParseWindowHours(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return builds.DefaultWindowHours
	}
	return n
}

// Update holds the sync-scope fields a save action may change. Empty
// fields are left untouched.
type Update struct {
	ServerURL   string
	WindowHours string
	SortOrder   string
}

func (u Update) values() map[string]string {
	vals := make(map[string]string, 3)
	if u.ServerURL != "" {
		vals[KeyServerURL] = u.ServerURL
	}
	if u.WindowHours != "" {
		vals[KeyWindowHours] = u.WindowHours
	}
	if u.SortOrder != "" {
		vals[KeySortOrder] = u.SortOrder
	}
	return vals
}

func SaveConfiguration(ctx context.Context, s Store, u Update) error {
	if err := s.Set(ctx, ScopeSync, u.values()); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

func SaveUserID(ctx context.Context, s Store, userID string) error {
	if err := s.Set(ctx, ScopeSync, map[string]string{KeyUserID: userID}); err != nil {
		return fmt.Errorf("save user id: %w", err)
	}
	return nil
}

// Seed writes u only for sync keys that have never been stored.
func Seed(ctx context.Context, s Store, u Update) error {
	want := u.values()
	if len(want) == 0 {
		return nil
	}

	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	have, err := s.Get(ctx, ScopeSync, keys...)
	if err != nil {
		return fmt.Errorf("seed configuration: %w", err)
	}

	missing := make(map[string]string, len(want))
	for k, v := range want {
		if _, ok := have[k]; !ok {
			missing[k] = v
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := s.Set(ctx, ScopeSync, missing); err != nil {
		return fmt.Errorf("seed configuration: %w", err)
	}
	return nil
}

// LastViewed returns the last-viewed marker in epoch milliseconds, 0 if the
// report has never been opened.
func LastViewed(ctx context.Context, s Store) (int64, error) {
	vals, err := s.Get(ctx, ScopeLocal, KeyLastViewed)
	if err != nil {
		return 0, fmt.Errorf("load last viewed: %w", err)
	}
	raw, ok := vals[KeyLastViewed]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func MarkViewed(ctx context.Context, s Store, at time.Time) error {
	err := s.Set(ctx, ScopeLocal, map[string]string{
		KeyLastViewed: strconv.FormatInt(at.UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("mark viewed: %w", err)
	}
	return nil
}
