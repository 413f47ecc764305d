package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/taleweaver/internal/remote"
)

func TestDeterministicClock_Advances(t *testing.T) {
	c := NewDeterministicClock()

	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestFrozenClock(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFrozenClock(at)

	assert.Equal(t, at, c.Now())
	assert.Equal(t, at, c.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	c := NewDeterministicClock()

	var wg sync.WaitGroup
	seen := make(chan time.Time, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 50)
}

func TestSequentialHandles(t *testing.T) {
	g := NewSequentialHandles()

	assert.Equal(t, "blob:taleweaver/test-0001", g.Generate())
	assert.Equal(t, "blob:taleweaver/test-0002", g.Generate())
}

func TestStubRemote(t *testing.T) {
	s := &StubRemote{
		Stories: []remote.Story{{ID: "story-1"}},
		Photos:  map[string][]byte{"https://p/1.jpg": {1, 2}},
	}
	ctx := context.Background()

	got, err := s.FetchStories(ctx, remote.DefaultQuery)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, s.FeedCalls())

	photo, err := s.FetchPhoto(ctx, "https://p/1.jpg")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, photo)

	_, err = s.FetchPhoto(ctx, "https://p/2.jpg")
	assert.True(t, remote.IsAPIError(err))

	assert.NoError(t, s.AddStory(ctx, remote.NewStory{Description: "d"}))
	assert.Len(t, s.Posted(), 1)
}
