package storage

import (
	"errors"
	"fmt"
	"strings"

	"reelroom/internal/models"
)

// ErrInvalidProgress reports a progress write that violates the record
// invariants (missing keys or a negative position).
var ErrInvalidProgress = errors.New("invalid watch progress")

func validateProgressKey(userID, itemID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("%w: user and item are required", ErrInvalidProgress)
	}
	return nil
}

// GetWatchProgress reports the stored playback position for the pair. Pairs
// never written read as zero.
func (s *Storage) GetWatchProgress(userID, itemID string) (int64, error) {
	if err := validateProgressKey(userID, itemID); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.data.WatchProgress[userID][itemID]
	if !ok {
		return 0, nil
	}
	return record.PositionSeconds, nil
}

// ListWatchProgress returns every stored position for the user keyed by item.
func (s *Storage) ListWatchProgress(userID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress := make(map[string]int64, len(s.data.WatchProgress[userID]))
	for itemID, record := range s.data.WatchProgress[userID] {
		progress[itemID] = record.PositionSeconds
	}
	return progress, nil
}

// UpsertWatchProgress overwrites the position for the pair, creating the
// record on first report. The mutation happens entirely under the write lock,
// so concurrent writers for the same pair serialize and the last one wins.
func (s *Storage) UpsertWatchProgress(userID, itemID string, positionSeconds int64) error {
	if err := validateProgressKey(userID, itemID); err != nil {
		return err
	}
	if positionSeconds < 0 {
		return fmt.Errorf("%w: position must not be negative", ErrInvalidProgress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	if updated.WatchProgress[userID] == nil {
		updated.WatchProgress[userID] = make(map[string]models.WatchProgress)
	}
	updated.WatchProgress[userID][itemID] = models.WatchProgress{
		UserID:          userID,
		ItemID:          itemID,
		PositionSeconds: positionSeconds,
		UpdatedAt:       s.now(),
	}

	if err := s.persistDataset(updated); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.data = updated
	return nil
}
