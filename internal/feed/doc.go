// Package feed decides what a user sees: the remote story feed when it is
// reachable and non-empty, otherwise the stories saved on this device,
// otherwise an explicit empty-state message. The two sources are never
// merged into one list.
//
// It also holds the page-level callers of the local store and the media
// registry: HomeView (the reconciled feed), TalesView (saved stories with
// delete), SaveOffline (keep a remote story on this device) and Publish
// (post a story, queueing it locally when the API is unreachable).
//
// Each view owns one media.Scope. Render releases the handles issued by
// the previous render before creating new ones, and Close releases them
// unconditionally.
package feed
