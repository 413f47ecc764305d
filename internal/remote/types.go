package remote

import (
	"errors"
	"fmt"
)

// DefaultBaseURL is the public story API.
const DefaultBaseURL = "https://story-api.dicoding.dev/v1"

// ErrUnauthenticated is returned by story calls made without a token.
var ErrUnauthenticated = errors.New("user not authenticated, please login")

// APIError is a response the API rejected: a non-2xx status or a body with
// "error": true.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("story api: status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether err is an *APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// Story is a story as the API returns it.
type Story struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PhotoURL    string   `json:"photoUrl"`
	CreatedAt   string   `json:"createdAt"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

// HasLocation reports whether both coordinates are set.
func (s Story) HasLocation() bool {
	return s.Lat != nil && s.Lon != nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// Query selects a page of the story feed.
type Query struct {
	Page int
	Size int
	// WithLocation restricts the feed to stories that carry coordinates.
	WithLocation bool
}

// DefaultQuery is the page the home feed asks for.
var DefaultQuery = Query{Page: 1, Size: 20, WithLocation: true}

// NewStory is a story to post.
type NewStory struct {
	Description string
	Photo       []byte
	// PhotoName is the file name sent with the photo part.
	PhotoName string
	Lat       *float64
	Lon       *float64
}

// envelope is the common response body.
type envelope struct {
	Error       bool         `json:"error"`
	Message     string       `json:"message"`
	ListStory   []Story      `json:"listStory,omitempty"`
	Story       *Story       `json:"story,omitempty"`
	LoginResult *LoginResult `json:"loginResult,omitempty"`
}
