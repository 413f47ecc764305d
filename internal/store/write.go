package store

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/story"
)

// Save persists d and returns the id it was stored under.
//
// The description and photo keys must be present; a null photo passes
// unless WithRequirePhoto is set. createdAt defaults to now when absent,
// null or empty. An absent or null id lets the substrate assign one; any
// other id, including 0, is used as given and a collision is a
// CONSTRAINT error.
func (s *Stories) Save(ctx context.Context, d story.Draft) (int64, error) {
	if err := s.validate(d); err != nil {
		return 0, err
	}
	if err := s.Open(ctx); err != nil {
		return 0, err
	}

	rec := d.Record()
	if rec.CreatedAt == "" {
		rec.CreatedAt = story.FormatTime(s.now())
	}

	var key *int64
	if id, ok := d.ID.Get(); ok {
		key = &id
	}

	value, err := marshalRecord(rec)
	if err != nil {
		return 0, storageError("save", "encode record", err)
	}

	id, err := s.sub.Add(ctx, Collection, key, value)
	if err != nil {
		if errors.Is(err, kv.ErrKeyExists) {
			return 0, constraintError("save", "id already exists", err)
		}
		s.logger.Error("story save failed", "error", err)
		return 0, storageError("save", "add record", err)
	}

	s.logger.Debug("story saved", "id", id, "synced", rec.IsSynced())
	return id, nil
}

// SaveJSON decodes a JSON object and saves it. A document that is not an
// object, or does not decode, is a VALIDATION error.
func (s *Stories) SaveJSON(ctx context.Context, data []byte) (int64, error) {
	d, err := story.ParseDraft(data)
	if err != nil {
		return 0, validationError("save", "story data must be a JSON object", err)
	}
	return s.Save(ctx, d)
}

func (s *Stories) validate(d story.Draft) error {
	if !d.Description.Present() {
		return validationError("save", "description is required", nil)
	}
	if !d.Photo.Present() {
		return validationError("save", "photo is required", nil)
	}
	if s.requirePhoto {
		if photo, ok := d.Photo.Get(); !ok || len(photo) == 0 {
			return validationError("save", "photo must not be empty", nil)
		}
	}
	return nil
}

// Delete removes the record with id. A missing id is not an error.
func (s *Stories) Delete(ctx context.Context, id int64) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	if err := s.sub.Delete(ctx, Collection, id); err != nil {
		s.logger.Error("story delete failed", "id", id, "error", err)
		return storageError("delete", "delete record", err)
	}
	s.logger.Debug("story deleted", "id", id)
	return nil
}

// DeleteByID deletes the record whose id is the numeric text raw.
//
// Blank input and text that is not a finite number are VALIDATION errors.
// A number that is not an integer, or does not fit an int64, cannot name
// a stored key, so it deletes nothing and succeeds.
func (s *Stories) DeleteByID(ctx context.Context, raw string) error {
	id, ok, err := coerceKey(raw)
	if err != nil {
		return err
	}
	if !ok {
		return s.Open(ctx)
	}
	return s.Delete(ctx, id)
}

// coerceKey converts raw to a key. ok is false when raw is a valid number
// that no key can equal.
func coerceKey(raw string) (id int64, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, validationError("delete", "id is required", nil)
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true, nil
	}

	if base := radixPrefix(raw); base != 0 {
		id, err := strconv.ParseUint(raw[2:], base, 63)
		switch {
		case errors.Is(err, strconv.ErrRange):
			return 0, false, nil
		case err != nil:
			return 0, false, validationError("delete", "id must be a number", err)
		}
		return int64(id), true, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return 0, false, nil
	case err != nil:
		return 0, false, validationError("delete", "id must be a number", err)
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, false, validationError("delete", "id must be a finite number", nil)
	case f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64:
		return 0, false, nil
	}
	return int64(f), true, nil
}

// radixPrefix returns the base named by an unsigned 0x, 0o or 0b prefix.
func radixPrefix(raw string) int {
	if len(raw) < 3 || raw[0] != '0' {
		return 0
	}
	switch raw[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}
