package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrKeyExists is returned by Add when an explicit key is already taken.
	ErrKeyExists = errors.New("key already exists")

	// ErrNoCollection is returned when a collection has not been created.
	ErrNoCollection = errors.New("collection not found")

	// ErrNotOpen is returned when a data call precedes Open.
	ErrNotOpen = errors.New("database not open")

	// ErrVersionDowngrade is returned by Open when the stored schema
	// version is newer than the requested one.
	ErrVersionDowngrade = errors.New("stored version is newer than requested version")
)

// Entry is one stored key/value pair.
type Entry struct {
	Key   int64
	Value []byte
}

// UpgradeTx is the schema-changing view of a database handed to an
// UpgradeFunc.
type UpgradeTx interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string) error
}

// UpgradeFunc migrates a database from oldVersion to newVersion.
// It runs only when the stored version is older than the requested one;
// a brand-new database reports oldVersion 0.
type UpgradeFunc func(ctx context.Context, tx UpgradeTx, oldVersion, newVersion int) error

// Substrate is a versioned store of collections keyed by int64.
type Substrate interface {
	// Open establishes the named database at version, running upgrade
	// when the stored version is older.
	Open(ctx context.Context, name string, version int, upgrade UpgradeFunc) error

	// Add inserts value. A nil key asks the substrate to generate one.
	// Returns the key the value was stored under.
	Add(ctx context.Context, collection string, key *int64, value []byte) (int64, error)

	// GetAll returns every entry in ascending key order. Never nil.
	GetAll(ctx context.Context, collection string) ([]Entry, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, collection string, key int64) error

	// Count returns the number of entries in collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateCollectionName rejects names that cannot be used verbatim as a
// table name or key segment.
func ValidateCollectionName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// CheckVersion validates an Open request against the stored version and
// reports whether an upgrade must run.
func CheckVersion(stored, requested int) (needsUpgrade bool, err error) {
	if requested < 1 {
		return false, fmt.Errorf("version must be positive, got %d", requested)
	}
	if stored > requested {
		return false, fmt.Errorf("%w: stored=%d requested=%d", ErrVersionDowngrade, stored, requested)
	}
	return stored < requested, nil
}
