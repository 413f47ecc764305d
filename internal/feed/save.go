package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/story"
)

// ErrDescriptionAndPhoto is returned by Publish when either is missing.
var ErrDescriptionAndPhoto = errors.New("description and photo are required")

// StoryWriter persists drafts.
type StoryWriter interface {
	Save(ctx context.Context, d story.Draft) (int64, error)
}

// PhotoFetcher downloads a story photo.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, url string) ([]byte, error)
}

// StoryPoster posts a story to the remote API.
type StoryPoster interface {
	AddStory(ctx context.Context, s remote.NewStory) error
}

// SaveOption configures SaveOffline and Publish.
type SaveOption func(*saveConfig)

type saveConfig struct {
	logger *slog.Logger
}

// WithSaveLogger sets the logger. Defaults to slog.Default().
func WithSaveLogger(logger *slog.Logger) SaveOption {
	return func(c *saveConfig) { c.logger = logger }
}

func newSaveConfig(opts []SaveOption) saveConfig {
	c := saveConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// SaveOffline keeps a remote story on this device. The photo is downloaded
// when possible; a failed download stores the record with a null photo and
// the remote URL. Returns the local id.
func SaveOffline(ctx context.Context, w StoryWriter, photos PhotoFetcher, s remote.Story, opts ...SaveOption) (int64, error) {
	cfg := newSaveConfig(opts)
	d := story.Draft{
		Description: story.Set(s.Description),
		Photo:       story.Null[[]byte](),
		Lat:         s.Lat,
		Lon:         s.Lon,
		Synced:      story.Ptr(true),
		OriginalID:  story.Ptr(s.ID),
	}
	if s.Description == "" {
		d.Description = story.Set(s.Name)
	}
	if s.Name != "" {
		d.Name = story.Ptr(s.Name)
	}
	if s.CreatedAt != "" {
		d.CreatedAt = story.Set(s.CreatedAt)
	}

	if s.PhotoURL != "" {
		d.PhotoURL = story.Ptr(s.PhotoURL)
		if photos != nil {
			data, err := photos.FetchPhoto(ctx, s.PhotoURL)
			if err != nil {
				cfg.logger.Warn("could not fetch photo for offline copy", "story", s.ID, "error", err)
			} else {
				d.Photo = story.Set(data)
			}
		}
	}

	id, err := w.Save(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("save story %s offline: %w", s.ID, err)
	}
	cfg.logger.Info("story saved offline", "story", s.ID, "id", id)
	return id, nil
}

// PublishStatus is the outcome of Publish.
type PublishStatus string

const (
	// StatusPosted means the remote API accepted the story.
	StatusPosted PublishStatus = "posted"

	// StatusQueued means the API call failed and the story was kept on
	// this device, unsynced.
	StatusQueued PublishStatus = "queued"
)

// PublishResult describes a Publish call.
type PublishResult struct {
	Status PublishStatus
	// LocalID is set when Status is StatusQueued.
	LocalID int64
	// RemoteErr is the API failure that caused queueing.
	RemoteErr error
}

// Publish posts s. When the API call fails the story is saved locally with
// synced=false. Missing description or photo fails before any I/O.
func Publish(ctx context.Context, poster StoryPoster, w StoryWriter, s remote.NewStory, opts ...SaveOption) (PublishResult, error) {
	cfg := newSaveConfig(opts)
	if s.Description == "" || len(s.Photo) == 0 {
		return PublishResult{}, ErrDescriptionAndPhoto
	}

	remoteErr := poster.AddStory(ctx, s)
	if remoteErr == nil {
		cfg.logger.Info("story posted")
		return PublishResult{Status: StatusPosted}, nil
	}
	cfg.logger.Warn("posting story failed, queueing locally", "error", remoteErr)

	d := story.Draft{
		Description: story.Set(s.Description),
		Photo:       story.Set(s.Photo),
		Lat:         s.Lat,
		Lon:         s.Lon,
		Synced:      story.Ptr(false),
	}
	id, err := w.Save(ctx, d)
	if err != nil {
		return PublishResult{RemoteErr: remoteErr}, fmt.Errorf("publish: %w", errors.Join(remoteErr, err))
	}
	return PublishResult{Status: StatusQueued, LocalID: id, RemoteErr: remoteErr}, nil
}
