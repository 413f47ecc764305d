package feed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/story"
)

// Empty-state messages.
const (
	MsgNoStories     = "No stories available."
	MsgRemoteFailed  = "Failed to load stories. Please check your connection or try again later."
	MsgBothFailed    = "Failed to load stories from both API and local storage."
	MsgLoginRequired = "You need to login to see stories."
)

// Origin names the source a feed was served from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
	OriginNone   Origin = "none"
)

// errNoRemote stands in for a remote feed that was never configured.
var errNoRemote = errors.New("remote feed not configured")

// RemoteFeed fetches a page of the remote story feed.
type RemoteFeed interface {
	FetchStories(ctx context.Context, q remote.Query) ([]remote.Story, error)
}

// RemoteFeedFunc adapts a function to RemoteFeed.
type RemoteFeedFunc func(ctx context.Context, q remote.Query) ([]remote.Story, error)

// FetchStories calls f.
func (f RemoteFeedFunc) FetchStories(ctx context.Context, q remote.Query) ([]remote.Story, error) {
	return f(ctx, q)
}

// LocalFeed lists the stories saved on this device.
type LocalFeed interface {
	GetAll(ctx context.Context) ([]story.Record, error)
}

// Result is the outcome of one Load. Exactly one of Remote and Local is
// non-empty unless Origin is OriginNone, in which case Message says why.
type Result struct {
	Origin    Origin
	Remote    []remote.Story
	Local     []story.Record
	RemoteErr error
	LocalErr  error
	Message   string
}

// Empty reports whether nothing can be shown and Message must be.
func (r Result) Empty() bool {
	return r.Origin == OriginNone
}

// Reconciler applies the remote-first, local-fallback policy.
type Reconciler struct {
	remote RemoteFeed
	local  LocalFeed
	query  remote.Query
	logger *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithQuery sets the remote page to request. Defaults to remote.DefaultQuery.
func WithQuery(q remote.Query) ReconcilerOption {
	return func(r *Reconciler) { r.query = q }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler returns a reconciler over rf and lf. A nil rf behaves as an
// unreachable remote.
func NewReconciler(rf RemoteFeed, lf LocalFeed, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		remote: rf,
		local:  lf,
		query:  remote.DefaultQuery,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the remote feed and, when that fails or comes back empty,
// the local stories. It never returns an error: failures are reported in
// the Result.
func (r *Reconciler) Load(ctx context.Context) Result {
	var res Result

	stories, err := r.fetchRemote(ctx)
	if err == nil && len(stories) > 0 {
		res.Origin = OriginRemote
		res.Remote = stories
		return res
	}
	res.RemoteErr = err
	if err != nil {
		r.logger.Warn("remote feed failed, falling back to local stories", "error", err)
	} else {
		r.logger.Info("remote feed empty, falling back to local stories")
	}

	records, err := r.local.GetAll(ctx)
	if err != nil {
		r.logger.Error("local stories failed", "error", err)
		res.Origin = OriginNone
		res.LocalErr = err
		res.Message = MsgBothFailed
		return res
	}
	if len(records) > 0 {
		res.Origin = OriginLocal
		res.Local = records
		return res
	}

	res.Origin = OriginNone
	switch {
	case errors.Is(res.RemoteErr, remote.ErrUnauthenticated):
		res.Message = MsgLoginRequired
	case res.RemoteErr != nil:
		res.Message = MsgRemoteFailed
	default:
		res.Message = MsgNoStories
	}
	return res
}

func (r *Reconciler) fetchRemote(ctx context.Context) ([]remote.Story, error) {
	if r.remote == nil {
		return nil, errNoRemote
	}
	return r.remote.FetchStories(ctx, r.query)
}
