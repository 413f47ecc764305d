package store

import (
	"context"

	"github.com/roach88/taleweaver/internal/story"
)

// GetAll returns every stored record in ascending id order. The result is
// never nil.
func (s *Stories) GetAll(ctx context.Context) ([]story.Record, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	entries, err := s.sub.GetAll(ctx, Collection)
	if err != nil {
		s.logger.Error("story list failed", "error", err)
		return nil, storageError("getAll", "read records", err)
	}

	records := make([]story.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := unmarshalRecord(e.Key, e.Value)
		if err != nil {
			return nil, storageError("getAll", "decode record", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Stories) Count(ctx context.Context) (int, error) {
	if err := s.Open(ctx); err != nil {
		return 0, err
	}

	n, err := s.sub.Count(ctx, Collection)
	if err != nil {
		return 0, storageError("count", "count records", err)
	}
	return n, nil
}
