package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/taleweaver/internal/kv"
)

const (
	// DefaultName is the database name used when WithName is not given.
	DefaultName = "taleweaver-db"

	// SchemaVersion is the schema version this code expects.
	SchemaVersion = 1

	// Collection holds the story records.
	Collection = "stories"
)

// Stories is the local story store. Construct it once in the composition
// root and pass it to every collaborator; the zero value is not usable.
//
// Opening is lazy: the first operation (or an explicit Open) opens the
// substrate exactly once, and every later call sees that result.
type Stories struct {
	sub          kv.Substrate
	name         string
	version      int
	upgrade      kv.UpgradeFunc
	requirePhoto bool
	now          func() time.Time
	logger       *slog.Logger

	once    sync.Once
	openErr error
}

// Option configures Stories.
type Option func(*Stories)

// WithName sets the database name.
func WithName(name string) Option {
	return func(s *Stories) { s.name = name }
}

// WithClock sets the clock used to default createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Stories) { s.now = now }
}

// WithSchema sets the expected schema version and an upgrade hook that runs
// after the stories collection is ensured, only when the stored version is
// older than version.
func WithSchema(version int, upgrade kv.UpgradeFunc) Option {
	return func(s *Stories) {
		s.version = version
		s.upgrade = upgrade
	}
}

// WithRequirePhoto rejects drafts whose photo is null or empty, on top of
// the key-presence check that always applies.
func WithRequirePhoto(require bool) Option {
	return func(s *Stories) { s.requirePhoto = require }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stories) { s.logger = logger }
}

// New returns a store on sub. Nothing is opened until first use.
func New(sub kv.Substrate, opts ...Option) *Stories {
	s := &Stories{
		sub:     sub,
		name:    DefaultName,
		version: SchemaVersion,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the underlying database, running the upgrade when the stored
// version is older. Safe to call any number of times from any goroutine;
// the substrate is opened once and a failure is remembered.
//
// The open is detached from ctx cancellation so one abandoned caller cannot
// leave the store unusable for the rest of the process.
func (s *Stories) Open(ctx context.Context) error {
	s.once.Do(func() {
		s.logger.Debug("opening story store", "name", s.name, "version", s.version)
		if err := s.sub.Open(context.WithoutCancel(ctx), s.name, s.version, s.runUpgrade); err != nil {
			s.logger.Error("story store open failed", "name", s.name, "error", err)
			s.openErr = storageError("open", "substrate unavailable", err)
		}
	})
	return s.openErr
}

// Close closes the substrate.
func (s *Stories) Close() error {
	return s.sub.Close()
}

func (s *Stories) runUpgrade(ctx context.Context, tx kv.UpgradeTx, oldVersion, newVersion int) error {
	s.logger.Info("upgrading story store",
		"name", s.name,
		"from", oldVersion,
		"to", newVersion,
	)

	ok, err := tx.HasCollection(ctx, Collection)
	if err != nil {
		return err
	}
	if !ok {
		if err := tx.CreateCollection(ctx, Collection); err != nil {
			return err
		}
	}

	if s.upgrade != nil {
		return s.upgrade(ctx, tx, oldVersion, newVersion)
	}
	return nil
}
