package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/story"
	"github.com/roach88/taleweaver/internal/testutil"
)

func TestSave_RoundTrip(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	d := story.Draft{
		Description: story.Set("A walk in Bandung"),
		Photo:       story.Set([]byte{0x89, 'P', 'N', 'G'}),
		PhotoURL:    story.Ptr("https://example.com/p.png"),
		Name:        story.Ptr("Dewi"),
		Lat:         story.Ptr(-6.9175),
		Lon:         story.Ptr(107.6191),
		CreatedAt:   story.Set("2023-05-01T08:30:00.000Z"),
		Synced:      story.Ptr(true),
		OriginalID:  story.Ptr("story-abc"),
	}

	id, err := s.Save(ctx, d)
	require.NoError(t, err)

	records, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	want := d.Record()
	want.ID = id
	assert.Equal(t, want, records[0])
}

func TestSave_DefaultsCreatedAt(t *testing.T) {
	ctx := context.Background()

	for name, createdAt := range map[string]story.Field[string]{
		"absent": {},
		"null":   story.Null[string](),
		"empty":  story.Set(""),
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := createTestStore(t)

			_, err := s.Save(ctx, story.Draft{
				Description: story.Set("x"),
				Photo:       story.Null[[]byte](),
				CreatedAt:   createdAt,
			})
			require.NoError(t, err)

			records, err := s.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, story.FormatTime(testutil.Epoch), records[0].CreatedAt)
		})
	}
}

func TestSave_IDsDistinct(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	seen := make(map[int64]bool)
	for i := 0; i < 25; i++ {
		id, err := s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()})
		require.NoError(t, err)
		assert.False(t, seen[id], "id %d returned twice", id)
		seen[id] = true
	}
}

func TestSave_IDNotReusedAfterDelete(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	d := story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()}

	first, err := s.Save(ctx, d)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, first))

	second, err := s.Save(ctx, d)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSave_ValidationGate(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, story.Draft{})
	assert.True(t, IsValidation(err), "empty draft: %v", err)

	_, err = s.Save(ctx, story.Draft{Description: story.Set("x")})
	assert.True(t, IsValidation(err), "missing photo key: %v", err)

	_, err = s.Save(ctx, story.Draft{Photo: story.Null[[]byte]()})
	assert.True(t, IsValidation(err), "missing description key: %v", err)

	_, err = s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()})
	assert.NoError(t, err, "null photo with key present is accepted")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveJSON_ValidationGate(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"empty object", `{}`, false},
		{"missing photo", `{"description":"x"}`, false},
		{"null photo", `{"description":"x","photo":null}`, true},
		{"base64 photo", `{"description":"x","photo":"/9j/4A=="}`, true},
		{"null document", `null`, false},
		{"primitive", `"story"`, false},
		{"array", `[]`, false},
		{"malformed", `{"description":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveJSON(ctx, []byte(tt.input))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

func TestSave_RequirePhoto(t *testing.T) {
	s, _ := createTestStore(t, WithRequirePhoto(true))
	ctx := context.Background()

	_, err := s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()})
	assert.True(t, IsValidation(err))

	_, err = s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Set([]byte{})})
	assert.True(t, IsValidation(err))

	_, err = s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Set([]byte{1})})
	assert.NoError(t, err)
}

func TestSave_ExplicitIDCollisionIsConstraint(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	d := story.Draft{ID: story.Set(int64(7)), Description: story.Set("x"), Photo: story.Null[[]byte]()}
	id, err := s.Save(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = s.Save(ctx, d)
	require.Error(t, err)
	assert.True(t, IsConstraint(err))
	assert.False(t, IsStorage(err))
}

func TestSave_ZeroIDIsExplicit(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, story.Draft{ID: story.Set(int64(0)), Description: story.Set("zero"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	_, err = s.Save(ctx, story.Draft{ID: story.Set(int64(0)), Description: story.Set("again"), Photo: story.Null[[]byte]()})
	assert.True(t, IsConstraint(err))
}

func TestSave_NullIDIsGenerated(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, story.Draft{ID: story.Null[int64](), Description: story.Set("a"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)
	b, err := s.Save(ctx, story.Draft{ID: story.Null[int64](), Description: story.Set("b"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSave_StorageError(t *testing.T) {
	s, sub := createTestStore(t)
	sub.failAdd = true

	_, err := s.Save(context.Background(), story.Draft{Description: story.Set("x"), Photo: story.Null[[]byte]()})
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, errDiskGone)
}

func TestSave_DoesNotAliasDraft(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	photo := []byte{1, 2, 3}
	_, err := s.Save(ctx, story.Draft{Description: story.Set("x"), Photo: story.Set(photo)})
	require.NoError(t, err)
	photo[0] = 42

	records, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, records[0].Photo)
}

func TestDeleteByID_Idempotent(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, story.Draft{Description: story.Set("keep"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(ctx, "99999"))
	require.NoError(t, s.DeleteByID(ctx, "99999"))

	records, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
}

func TestDeleteByID_RemovesRecord(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, story.Draft{Description: story.Set("gone"), Photo: story.Null[[]byte]()})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(ctx, "  1  "))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(1), id)
}

func TestDeleteByID_Coercion(t *testing.T) {
	tests := []struct {
		raw     string
		id      int64
		ok      bool
		invalid bool
	}{
		{raw: "42", id: 42, ok: true},
		{raw: "-3", id: -3, ok: true},
		{raw: "0", id: 0, ok: true},
		{raw: "5.0", id: 5, ok: true},
		{raw: "1e3", id: 1000, ok: true},
		{raw: "1.5", ok: false},
		{raw: "1e30", ok: false},
		{raw: "1e400", ok: false},
		{raw: "0x10", id: 16, ok: true},
		{raw: "0X1f", id: 31, ok: true},
		{raw: "0o17", id: 15, ok: true},
		{raw: "0b101", id: 5, ok: true},
		{raw: "0xffffffffffffffffff", ok: false},
		{raw: "0x", invalid: true},
		{raw: "0xg1", invalid: true},
		{raw: "-0x10", invalid: true},
		{raw: "", invalid: true},
		{raw: "   ", invalid: true},
		{raw: "abc", invalid: true},
		{raw: "12abc", invalid: true},
		{raw: "NaN", invalid: true},
		{raw: "Inf", invalid: true},
		{raw: "-Infinity", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok, err := coerceKey(tt.raw)
			if tt.invalid {
				assert.True(t, IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}

func TestDeleteByID_InvalidDoesNotTouchStore(t *testing.T) {
	s, sub := createTestStore(t)

	err := s.DeleteByID(context.Background(), "not-a-number")
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(0), sub.opens.Load())
}

func TestDelete_StorageError(t *testing.T) {
	s, sub := createTestStore(t)
	sub.failDelete = true

	err := s.Delete(context.Background(), 1)
	assert.True(t, IsStorage(err))
}
