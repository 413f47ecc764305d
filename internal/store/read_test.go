package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/story"
)

func TestGetAll_EmptyIsNotNil(t *testing.T) {
	s, _ := createTestStore(t)

	records, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetAll_KeyOrder(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for _, desc := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, story.Draft{Description: story.Set(desc), Photo: story.Null[[]byte]()})
		require.NoError(t, err)
	}

	records, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Description)
	assert.Equal(t, "third", records[2].Description)
}

func TestGetAll_StorageError(t *testing.T) {
	s, sub := createTestStore(t)
	sub.failGetAll = true

	_, err := s.GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, errDiskGone)
}

func TestGetAll_CorruptValueIsStorageError(t *testing.T) {
	s, sub := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))

	_, err := sub.Add(ctx, Collection, nil, []byte{0xc1})
	require.NoError(t, err)

	_, err = s.GetAll(ctx)
	assert.True(t, IsStorage(err))
}

func TestCount(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestError_Format(t *testing.T) {
	err := validationError("save", "photo is required", nil)
	assert.Equal(t, "VALIDATION: save: photo is required", err.Error())

	wrapped := storageError("getAll", "read records", errDiskGone)
	assert.Equal(t, "STORAGE: getAll: read records: disk gone", wrapped.Error())
	assert.ErrorIs(t, wrapped, errDiskGone)
}
