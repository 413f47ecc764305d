// Package kvtest is a conformance suite shared by every kv.Substrate.
package kvtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/kv"
)

const (
	dbName     = "kvtest-db"
	collection = "items"
)

// Factory returns a fresh, unopened substrate. Calling it twice within one
// test must return handles onto the same underlying database so reopen
// behavior can be checked.
type Factory func(t *testing.T) (open func() kv.Substrate)

func createItems(ctx context.Context, tx kv.UpgradeTx, oldVersion, newVersion int) error {
	ok, err := tx.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !ok {
		return tx.CreateCollection(ctx, collection)
	}
	return nil
}

func opened(t *testing.T, open func() kv.Substrate) kv.Substrate {
	t.Helper()
	s := open()
	require.NoError(t, s.Open(context.Background(), dbName, 1, createItems))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Run exercises the kv.Substrate contract.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("AutoKeysAreUniqueAndIncreasing", func(t *testing.T) {
		s := opened(t, factory(t))

		var last int64
		for i := 0; i < 5; i++ {
			k, err := s.Add(ctx, collection, nil, []byte{byte(i)})
			require.NoError(t, err)
			assert.Greater(t, k, last)
			last = k
		}
	})

	t.Run("KeysNotReusedAfterDelete", func(t *testing.T) {
		s := opened(t, factory(t))

		k1, err := s.Add(ctx, collection, nil, []byte("a"))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, collection, k1))

		k2, err := s.Add(ctx, collection, nil, []byte("b"))
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
	})

	t.Run("GetAllAscendingKeyOrder", func(t *testing.T) {
		s := opened(t, factory(t))

		for _, v := range []string{"one", "two", "three"} {
			_, err := s.Add(ctx, collection, nil, []byte(v))
			require.NoError(t, err)
		}

		entries, err := s.GetAll(ctx, collection)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, []byte("one"), entries[0].Value)
		assert.Equal(t, []byte("three"), entries[2].Value)
		assert.Less(t, entries[0].Key, entries[1].Key)
		assert.Less(t, entries[1].Key, entries[2].Key)
	})

	t.Run("GetAllEmptyIsNotNil", func(t *testing.T) {
		s := opened(t, factory(t))

		entries, err := s.GetAll(ctx, collection)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("ExplicitKey", func(t *testing.T) {
		s := opened(t, factory(t))

		key := int64(0)
		got, err := s.Add(ctx, collection, &key, []byte("zero"))
		require.NoError(t, err)
		assert.Equal(t, int64(0), got)

		_, err = s.Add(ctx, collection, &key, []byte("again"))
		assert.ErrorIs(t, err, kv.ErrKeyExists)
	})

	t.Run("ExplicitKeyAdvancesGenerator", func(t *testing.T) {
		s := opened(t, factory(t))

		key := int64(40)
		_, err := s.Add(ctx, collection, &key, []byte("forty"))
		require.NoError(t, err)

		next, err := s.Add(ctx, collection, nil, []byte("next"))
		require.NoError(t, err)
		assert.Greater(t, next, key)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := opened(t, factory(t))

		_, err := s.Add(ctx, collection, nil, []byte("keep"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, collection, 99999))
		require.NoError(t, s.Delete(ctx, collection, 99999))

		n, err := s.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		s := opened(t, factory(t))

		_, err := s.Add(ctx, "missing", nil, []byte("x"))
		assert.ErrorIs(t, err, kv.ErrNoCollection)
		_, err = s.GetAll(ctx, "missing")
		assert.ErrorIs(t, err, kv.ErrNoCollection)
	})

	t.Run("ReopenKeepsDataAndSkipsUpgrade", func(t *testing.T) {
		open := factory(t)
		s1 := opened(t, open)
		_, err := s1.Add(ctx, collection, nil, []byte("persisted"))
		require.NoError(t, err)
		require.NoError(t, s1.Close())

		calls := 0
		s2 := open()
		t.Cleanup(func() { _ = s2.Close() })
		err = s2.Open(ctx, dbName, 1, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, calls, "upgrade must not run when versions match")

		n, err := s2.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("UpgradeRunsForOlderVersion", func(t *testing.T) {
		open := factory(t)
		s1 := opened(t, open)
		require.NoError(t, s1.Close())

		var gotOld, gotNew int
		s2 := open()
		t.Cleanup(func() { _ = s2.Close() })
		err := s2.Open(ctx, dbName, 2, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
			gotOld, gotNew = o, n
			has, err := tx.HasCollection(ctx, collection)
			require.NoError(t, err)
			assert.True(t, has)
			return tx.CreateCollection(ctx, "extra")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, gotOld)
		assert.Equal(t, 2, gotNew)

		_, err = s2.Add(ctx, "extra", nil, []byte("x"))
		assert.NoError(t, err)
	})

	t.Run("NewDatabaseUpgradesFromZero", func(t *testing.T) {
		s := factory(t)()
		t.Cleanup(func() { _ = s.Close() })

		oldVersion := -1
		err := s.Open(ctx, dbName, 1, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
			oldVersion = o
			return createItems(ctx, tx, o, n)
		})
		require.NoError(t, err)
		assert.Equal(t, 0, oldVersion)
	})

	t.Run("DowngradeRejected", func(t *testing.T) {
		open := factory(t)
		s1 := open()
		require.NoError(t, s1.Open(ctx, dbName, 2, createItems))
		require.NoError(t, s1.Close())

		s2 := open()
		t.Cleanup(func() { _ = s2.Close() })
		err := s2.Open(ctx, dbName, 1, createItems)
		assert.ErrorIs(t, err, kv.ErrVersionDowngrade)
	})

	t.Run("FailedUpgradeIsReported", func(t *testing.T) {
		s := factory(t)()
		t.Cleanup(func() { _ = s.Close() })

		boom := errors.New("boom")
		err := s.Open(ctx, dbName, 1, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ConcurrentAddsGetDistinctKeys", func(t *testing.T) {
		s := opened(t, factory(t))

		const n = 20
		keys := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				k, err := s.Add(ctx, collection, nil, []byte("c"))
				assert.NoError(t, err)
				keys <- k
			}()
		}
		wg.Wait()
		close(keys)

		seen := make(map[int64]bool)
		for k := range keys {
			assert.False(t, seen[k], "duplicate key %d", k)
			seen[k] = true
		}
		assert.Len(t, seen, n)
	})
}
