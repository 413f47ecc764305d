// Package media hands out short-lived display references for photo bytes.
//
// A Registry is the process-local table of live references. Views obtain
// a Scope with BeginScope and create references through it; releasing the
// scope revokes every handle it issued. Scopes are independent, so several
// views (or overlapping renders) can each own and revoke their own set.
//
// A view that re-renders must call ReleaseAll on its scope before creating
// references for the new render, otherwise handles from the previous render
// stay resolvable until teardown.
package media
