// Package store persists the history of applied time ranges.
package store

import (
	"context"
	"encoding/json"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/resolver"
)

// Store provides database access to range history.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

// GetDriver returns the underlying driver.
func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate prepares the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Close closes the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// RecordApplied persists an applied range payload as a history entry and
// prunes entries beyond the configured limit.
func (s *Store) RecordApplied(ctx context.Context, payload *resolver.ResolvedPayload) (*RangeHistory, error) {
	if payload == nil {
		return nil, errors.New("nil payload")
	}
	raw, err := json.Marshal(payload.Definition)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal definition")
	}

	entry := &RangeHistory{
		UID:        shortuuid.New(),
		Label:      payload.Definition.Label,
		Definition: string(raw),
		StartMs:    payload.Resolved.StartMs,
		EndMs:      payload.Resolved.EndMs,
		Timezone:   payload.Resolved.ResolvedTz,
	}
	if err := s.driver.CreateRangeHistory(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "failed to create range history")
	}
	if err := s.driver.PruneRangeHistory(ctx, s.historyLimit()); err != nil {
		return nil, errors.Wrap(err, "failed to prune range history")
	}
	return entry, nil
}

// ListRecent returns the most recently applied entries, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*RangeHistory, error) {
	if limit <= 0 || limit > s.historyLimit() {
		limit = s.historyLimit()
	}
	return s.driver.ListRangeHistory(ctx, limit)
}

func (s *Store) historyLimit() int {
	if s.profile != nil && s.profile.HistoryLimit > 0 {
		return s.profile.HistoryLimit
	}
	return 50
}

// DecodeDefinition unmarshals the stored definition JSON of an entry.
func (e *RangeHistory) DecodeDefinition() (resolver.TimeRangeDefinition, error) {
	var def resolver.TimeRangeDefinition
	if err := json.Unmarshal([]byte(e.Definition), &def); err != nil {
		return resolver.TimeRangeDefinition{}, errors.Wrap(err, "failed to unmarshal definition")
	}
	return def, nil
}
