// Package remote is a client for the story API: account registration,
// login, the paginated story feed, story detail, posting a story, and
// downloading story photos.
//
// Every story call needs a bearer token (see Client.Login and WithToken).
// Failures come back as ErrUnauthenticated, *APIError for responses the API
// rejected, or a wrapped transport error. GET requests can be retried with
// exponential backoff (WithRetries); nothing else is retried.
package remote
