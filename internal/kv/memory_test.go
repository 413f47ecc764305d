package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/kv/kvtest"
)

func TestMemory_Conformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) func() kv.Substrate {
		m := kv.NewMemory()
		return func() kv.Substrate { return m }
	})
}

func TestMemory_CallsBeforeOpen(t *testing.T) {
	m := kv.NewMemory()
	_, err := m.Add(context.Background(), "stories", nil, []byte("x"))
	assert.ErrorIs(t, err, kv.ErrNotOpen)
}

func TestMemory_NameMismatch(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	require.NoError(t, m.Open(ctx, "a", 1, nil))
	assert.Error(t, m.Open(ctx, "b", 1, nil))
}

func TestMemory_FailedUpgradeLeavesNoCollections(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()

	err := m.Open(ctx, "db", 1, func(ctx context.Context, tx kv.UpgradeTx, o, n int) error {
		require.NoError(t, tx.CreateCollection(ctx, "stories"))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, m.Version())

	require.NoError(t, m.Open(ctx, "db", 1, nil))
	_, err = m.GetAll(ctx, "stories")
	assert.ErrorIs(t, err, kv.ErrNoCollection)
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, kv.ValidateCollectionName("stories"))
	assert.NoError(t, kv.ValidateCollectionName("_tmp2"))
	assert.Error(t, kv.ValidateCollectionName("2bad"))
	assert.Error(t, kv.ValidateCollectionName(`x"; DROP TABLE y; --`))
	assert.Error(t, kv.ValidateCollectionName(""))
}
