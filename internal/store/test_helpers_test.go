package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/testutil"
)

var errDiskGone = errors.New("disk gone")

// faultySubstrate wraps a substrate, counting opens and failing chosen
// calls on demand.
type faultySubstrate struct {
	kv.Substrate
	opens      atomic.Int32
	failOpen   bool
	failAdd    bool
	failGetAll bool
	failDelete bool
}

func (f *faultySubstrate) Open(ctx context.Context, name string, version int, upgrade kv.UpgradeFunc) error {
	f.opens.Add(1)
	if f.failOpen {
		return errDiskGone
	}
	return f.Substrate.Open(ctx, name, version, upgrade)
}

func (f *faultySubstrate) Add(ctx context.Context, collection string, key *int64, value []byte) (int64, error) {
	if f.failAdd {
		return 0, errDiskGone
	}
	return f.Substrate.Add(ctx, collection, key, value)
}

func (f *faultySubstrate) GetAll(ctx context.Context, collection string) ([]kv.Entry, error) {
	if f.failGetAll {
		return nil, errDiskGone
	}
	return f.Substrate.GetAll(ctx, collection)
}

func (f *faultySubstrate) Delete(ctx context.Context, collection string, key int64) error {
	if f.failDelete {
		return errDiskGone
	}
	return f.Substrate.Delete(ctx, collection, key)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore creates a store on a fresh in-memory substrate.
func createTestStore(t *testing.T, opts ...Option) (*Stories, *faultySubstrate) {
	t.Helper()
	sub := &faultySubstrate{Substrate: kv.NewMemory()}
	opts = append([]Option{
		WithClock(testutil.NewDeterministicClock().Now),
		WithLogger(quietLogger()),
	}, opts...)
	s := New(sub, opts...)
	t.Cleanup(func() { s.Close() })
	return s, sub
}
