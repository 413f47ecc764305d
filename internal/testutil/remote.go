package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/taleweaver/internal/remote"
)

// StubRemote stands in for the story API in tests. It serves a fixed feed,
// a fixed set of photos, and records posted stories.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StubRemote struct {
	mu sync.Mutex

	// Stories is the feed. Nil with a nil FeedErr serves an empty feed.
	Stories []remote.Story
	// FeedErr, when set, fails FetchStories.
	FeedErr error
	// Photos maps photo URL to bytes. Unknown URLs fail.
	Photos map[string][]byte
	// PostErr, when set, fails AddStory.
	PostErr error

	feedCalls int
	posted    []remote.NewStory
}

// FetchStories implements feed.RemoteFeed.
func (s *StubRemote) FetchStories(ctx context.Context, q remote.Query) ([]remote.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedCalls++
	if s.FeedErr != nil {
		return nil, s.FeedErr
	}
	out := make([]remote.Story, len(s.Stories))
	copy(out, s.Stories)
	return out, nil
}

// FetchPhoto implements feed.PhotoFetcher.
func (s *StubRemote) FetchPhoto(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Photos[url]
	if !ok {
		return nil, &remote.APIError{Status: 404, Message: fmt.Sprintf("no photo at %s", url)}
	}
	return append([]byte(nil), data...), nil
}

// AddStory implements feed.StoryPoster.
func (s *StubRemote) AddStory(ctx context.Context, ns remote.NewStory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PostErr != nil {
		return s.PostErr
	}
	s.posted = append(s.posted, ns)
	return nil
}

// FeedCalls returns how many times FetchStories ran.
func (s *StubRemote) FeedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedCalls
}

// Posted returns the stories AddStory accepted.
func (s *StubRemote) Posted() []remote.NewStory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.NewStory(nil), s.posted...)
}
