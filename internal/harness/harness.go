package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/kv/sqlitekv"
	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/store"
	"github.com/roach88/taleweaver/internal/testutil"
)

// Harness wires one scenario's components: a fresh store, a media registry
// with sequential handles, a stub API, and the two views.
type Harness struct {
	stories  *store.Stories
	registry *media.Registry
	remote   *testutil.StubRemote
	home     *feed.HomeView
	tales    *feed.TalesView
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory SQLite database. The clock
// and handle generator are deterministic, so traces are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database and stub API
// 2. Save setup stories
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions and release every view
func Run(scenario *Scenario) (*Result, error) {
	sub, err := sqlitekv.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewDeterministicClock()
	handles := testutil.NewSequentialHandles()

	stories := store.New(sub, store.WithClock(clock.Now), store.WithLogger(logger))
	defer stories.Close()

	stub := newStubRemote(scenario.Remote)
	registry := media.NewRegistry(media.WithHandleGenerator(handles.Generate))
	rec := feed.NewReconciler(stub, stories, feed.WithLogger(logger))

	h := &Harness{
		stories:  stories,
		registry: registry,
		remote:   stub,
		home:     feed.NewHomeView(rec, registry),
		tales:    feed.NewTalesView(stories, registry, logger),
		logger:   logger,
	}
	defer h.home.Close()
	defer h.tales.Close()

	ctx := context.Background()

	for i, doc := range scenario.Setup {
		if _, err := stories.SaveJSON(ctx, []byte(doc)); err != nil {
			return nil, fmt.Errorf("failed to execute setup: step %d: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		trace := h.execute(ctx, i, step)
		result.AddTrace(trace)
		if step.Expect != nil {
			for _, msg := range checkExpect(trace, *step.Expect) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
			}
		}
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Stories:  stories,
		Registry: registry,
		Remote:   stub,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newStubRemote(rs RemoteSetup) *testutil.StubRemote {
	stub := &testutil.StubRemote{Photos: map[string][]byte{}}
	for _, s := range rs.Stories {
		stub.Stories = append(stub.Stories, s.toRemote())
	}
	switch rs.Error {
	case "":
	case "unauthenticated":
		stub.FeedErr = remote.ErrUnauthenticated
	default:
		stub.FeedErr = errors.New(rs.Error)
	}
	for url, data := range rs.Photos {
		stub.Photos[url] = []byte(data)
	}
	if rs.PostError != "" {
		stub.PostErr = errors.New(rs.PostError)
	}
	return stub
}

func (s RemoteStory) toRemote() remote.Story {
	return remote.Story{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		PhotoURL:    s.PhotoURL,
		CreatedAt:   s.CreatedAt,
		Lat:         s.Lat,
		Lon:         s.Lon,
	}
}

// execute runs one step. Failures are recorded in the trace, not returned.
func (h *Harness) execute(ctx context.Context, i int, step FlowStep) StepTrace {
	t := StepTrace{Step: i, Op: step.Op}
	var err error

	switch step.Op {
	case OpSave:
		var id int64
		if id, err = h.stories.SaveJSON(ctx, []byte(step.Data)); err == nil {
			t.ID = &id
		}
	case OpDelete:
		err = h.stories.DeleteByID(ctx, step.ID)
	case OpRenderHome:
		err = h.render(&t, func() (feed.Page, error) { return h.home.Render(ctx) })
	case OpRenderTales:
		err = h.render(&t, func() (feed.Page, error) { return h.tales.Render(ctx) })
	case OpDeleteTale:
		err = h.render(&t, func() (feed.Page, error) { return h.tales.Delete(ctx, step.ID) })
	case OpCloseHome:
		h.home.Close()
	case OpCloseTales:
		h.tales.Close()
	case OpSaveOffline:
		err = h.saveOffline(ctx, &t, step.ID)
	case OpPublish:
		err = h.publish(ctx, &t, *step.Story)
	}

	if err != nil {
		h.logger.Debug("step failed", "step", i, "op", step.Op, "error", err)
		t.Error = errorCode(err)
	}
	t.Outstanding = h.registry.Outstanding()
	return t
}

func (h *Harness) render(t *StepTrace, fn func() (feed.Page, error)) error {
	page, err := fn()
	if err != nil {
		return err
	}
	t.Page = &page
	return nil
}

func (h *Harness) saveOffline(ctx context.Context, t *StepTrace, remoteID string) error {
	for _, s := range h.remote.Stories {
		if s.ID != remoteID {
			continue
		}
		id, err := feed.SaveOffline(ctx, h.stories, h.remote, s, feed.WithSaveLogger(h.logger))
		if err != nil {
			return err
		}
		t.ID = &id
		return nil
	}
	return &remote.APIError{Status: 404, Message: "story " + remoteID + " not found"}
}

func (h *Harness) publish(ctx context.Context, t *StepTrace, ns NewStory) error {
	res, err := feed.Publish(ctx, h.remote, h.stories, remote.NewStory{
		Description: ns.Description,
		Photo:       []byte(ns.Photo),
		Lat:         ns.Lat,
		Lon:         ns.Lon,
	}, feed.WithSaveLogger(h.logger))
	t.Status = string(res.Status)
	if res.Status == feed.StatusQueued {
		id := res.LocalID
		t.ID = &id
	}
	return err
}

// errorCode maps a step error to a stable code for traces.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case store.IsValidation(err):
		return CodeValidation
	case store.IsConstraint(err):
		return CodeConstraint
	case store.IsStorage(err):
		return CodeStorage
	case errors.Is(err, feed.ErrViewClosed):
		return CodeViewClosed
	case errors.Is(err, feed.ErrDescriptionAndPhoto):
		return CodeInvalid
	case remote.IsAPIError(err):
		return CodeNotFound
	default:
		return CodeOther
	}
}

// checkExpect compares a step's trace against its expectation.
func checkExpect(t StepTrace, e ExpectClause) []string {
	var errs []string

	switch e.Error {
	case "":
	case CodeNone:
		if t.Error != "" {
			errs = append(errs, fmt.Sprintf("expected no error, got %q", t.Error))
		}
	default:
		if t.Error != e.Error {
			errs = append(errs, fmt.Sprintf("expected error %q, got %q", e.Error, t.Error))
		}
	}

	if e.ID != nil {
		switch {
		case t.ID == nil:
			errs = append(errs, fmt.Sprintf("expected id %d, got none", *e.ID))
		case *t.ID != *e.ID:
			errs = append(errs, fmt.Sprintf("expected id %d, got %d", *e.ID, *t.ID))
		}
	}

	if e.Status != "" && t.Status != e.Status {
		errs = append(errs, fmt.Sprintf("expected status %q, got %q", e.Status, t.Status))
	}

	if e.Origin == "" && e.Message == "" && e.Items == nil {
		return errs
	}
	if t.Page == nil {
		return append(errs, "expected a rendered page, got none")
	}
	if e.Origin != "" && string(t.Page.Origin) != e.Origin {
		errs = append(errs, fmt.Sprintf("expected origin %q, got %q", e.Origin, t.Page.Origin))
	}
	if e.Message != "" && t.Page.Message != e.Message {
		errs = append(errs, fmt.Sprintf("expected message %q, got %q", e.Message, t.Page.Message))
	}
	if e.Items != nil && len(t.Page.Items) != *e.Items {
		errs = append(errs, fmt.Sprintf("expected %d items, got %d", *e.Items, len(t.Page.Items)))
	}
	return errs
}
