package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/story"
)

// View names.
const (
	ViewHome  = "home"
	ViewTales = "tales"
)

// My Tales messages.
const (
	MsgNoTales     = "You have no saved tales yet."
	MsgTalesFailed = "Oops! Something went wrong while loading your tales."
)

// ErrViewClosed is returned by Render after Close.
var ErrViewClosed = errors.New("view closed")

// View is a page that renders stories and owns the media handles it issued.
type View interface {
	Name() string
	Render(ctx context.Context) (Page, error)
	Close()
}

// scopedView holds the media scope shared by every view.
type scopedView struct {
	mu     sync.Mutex
	scope  *media.Scope
	closed bool
	logger *slog.Logger
}

func (v *scopedView) init(reg *media.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	v.scope = reg.BeginScope()
	v.logger = logger
}

// begin releases the previous render's handles. Callers hold mu.
func (v *scopedView) begin() error {
	if v.closed {
		return ErrViewClosed
	}
	v.scope.ReleaseAll()
	return nil
}

// renderLocal appends records to p. One bad photo does not stop the rest.
func (v *scopedView) renderLocal(p *Page, records []story.Record) {
	for _, r := range records {
		item, err := localItem(v.scope, r)
		switch {
		case media.IsReferenceError(err):
			v.logger.Warn("photo reference failed, using placeholder", "id", r.ID, "error", err)
		case err != nil:
			v.logger.Error("photo reference failed", "id", r.ID, "error", err)
		}
		p.add(item)
	}
	v.logger.Debug("rendered local stories", "items", len(records), "handles", v.scope.Len())
}

// Close releases every handle the view issued. Safe to call repeatedly.
func (v *scopedView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scope.ReleaseAll()
	v.closed = true
}

// HomeView renders the reconciled story feed.
type HomeView struct {
	scopedView
	rec *Reconciler
}

// NewHomeView returns a home view drawing handles from reg.
func NewHomeView(rec *Reconciler, reg *media.Registry) *HomeView {
	v := &HomeView{rec: rec}
	v.init(reg, rec.logger)
	return v
}

// Name implements View.
func (v *HomeView) Name() string { return ViewHome }

// Render loads the feed and renders it.
func (v *HomeView) Render(ctx context.Context) (Page, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.begin(); err != nil {
		return Page{}, err
	}

	res := v.rec.Load(ctx)
	p := newPage(ViewHome, res.Origin)
	p.Message = res.Message
	if err := errors.Join(res.RemoteErr, res.LocalErr); err != nil {
		p.Error = err.Error()
	}

	switch res.Origin {
	case OriginRemote:
		for _, s := range res.Remote {
			p.add(remoteItem(s))
		}
	case OriginLocal:
		v.renderLocal(&p, res.Local)
	}
	return p, nil
}

// TalesStore is what the My Tales view needs from the local store.
type TalesStore interface {
	LocalFeed
	DeleteByID(ctx context.Context, id string) error
}

// TalesView lists the stories saved on this device and deletes them.
type TalesView struct {
	scopedView
	stories TalesStore
}

// NewTalesView returns a My Tales view.
func NewTalesView(stories TalesStore, reg *media.Registry, logger *slog.Logger) *TalesView {
	v := &TalesView{stories: stories}
	v.init(reg, logger)
	return v
}

// Name implements View.
func (v *TalesView) Name() string { return ViewTales }

// Render lists the saved stories. A store failure is shown as a message,
// not returned.
func (v *TalesView) Render(ctx context.Context) (Page, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.render(ctx)
}

func (v *TalesView) render(ctx context.Context) (Page, error) {
	if err := v.begin(); err != nil {
		return Page{}, err
	}

	p := newPage(ViewTales, OriginLocal)
	records, err := v.stories.GetAll(ctx)
	if err != nil {
		v.logger.Error("loading saved tales failed", "error", err)
		p.Origin = OriginNone
		p.Message = MsgTalesFailed
		p.Error = err.Error()
		return p, nil
	}
	if len(records) == 0 {
		p.Origin = OriginNone
		p.Message = MsgNoTales
		return p, nil
	}

	v.renderLocal(&p, records)
	return p, nil
}

// Delete removes a saved story and renders the view again.
func (v *TalesView) Delete(ctx context.Context, id string) (Page, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return Page{}, ErrViewClosed
	}
	if err := v.stories.DeleteByID(ctx, id); err != nil {
		return Page{}, err
	}
	v.logger.Info("tale deleted", "id", id)
	return v.render(ctx)
}
