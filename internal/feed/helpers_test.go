package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/store"
	"github.com/roach88/taleweaver/internal/story"
	"github.com/roach88/taleweaver/internal/testutil"
)

var (
	errNetwork = errors.New("network unreachable")
	errDisk    = errors.New("disk gone")
	jpeg       = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Stories {
	t.Helper()
	s := store.New(kv.NewMemory(),
		store.WithClock(testutil.NewDeterministicClock().Now),
		store.WithLogger(quietLogger()),
	)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRegistry() *media.Registry {
	return media.NewRegistry(media.WithHandleGenerator(testutil.NewSequentialHandles().Generate))
}

func mustSave(t *testing.T, s *store.Stories, d story.Draft) int64 {
	t.Helper()
	id, err := s.Save(context.Background(), d)
	require.NoError(t, err)
	return id
}

// failingLocal is a LocalFeed whose reads always fail.
type failingLocal struct{}

func (failingLocal) GetAll(ctx context.Context) ([]story.Record, error) {
	return nil, errDisk
}

func (failingLocal) DeleteByID(ctx context.Context, id string) error {
	return errDisk
}

// fixedLocal serves records as given.
type fixedLocal []story.Record

func (f fixedLocal) GetAll(ctx context.Context) ([]story.Record, error) {
	return f, nil
}

func remoteStories(ids ...string) []remote.Story {
	out := make([]remote.Story, 0, len(ids))
	for _, id := range ids {
		out = append(out, remote.Story{
			ID:          id,
			Name:        "Author " + id,
			Description: "Story " + id,
			PhotoURL:    "https://story-api.dicoding.dev/images/" + id + ".jpg",
			CreatedAt:   "2024-01-01T00:00:00.000Z",
		})
	}
	return out
}

func remoteStoryWithoutPhoto() remote.Story {
	return remote.Story{ID: "bare"}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// talesOf adapts fixed records to TalesStore with a no-op delete.
type talesOf fixedLocal

func (t talesOf) GetAll(ctx context.Context) ([]story.Record, error) {
	return t, nil
}

func (t talesOf) DeleteByID(ctx context.Context, id string) error {
	return nil
}

// brokenSubstrate fails to open.
type brokenSubstrate struct{ kv.Memory }

func (*brokenSubstrate) Open(ctx context.Context, name string, version int, upgrade kv.UpgradeFunc) error {
	return errDisk
}
