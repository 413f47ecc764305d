package rediskv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/kv/kvtest"
)

func newTestServer(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestSubstrate_Conformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) func() kv.Substrate {
		mr := newTestServer(t)
		return func() kv.Substrate {
			return New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
		}
	})
}

func TestDial(t *testing.T) {
	mr := newTestServer(t)

	s, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestDial_Unreachable(t *testing.T) {
	mr := newTestServer(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), addr)
	assert.Error(t, err)
}

func TestOpen_WritesVersionKey(t *testing.T) {
	mr := newTestServer(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer s.Close()

	require.NoError(t, s.Open(context.Background(), "taleweaver-db", 1, nil))

	v, err := mr.Get("taleweaver-db:version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestOpen_RejectsNameWithSeparator(t *testing.T) {
	mr := newTestServer(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer s.Close()

	assert.Error(t, s.Open(context.Background(), "bad:name", 1, nil))
}

func TestStorageFailureSurfaces(t *testing.T) {
	mr := newTestServer(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "db", 1, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
		return tx.CreateCollection(ctx, "stories")
	}))

	mr.Close()

	_, err := s.GetAll(ctx, "stories")
	require.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNoCollection)
}
