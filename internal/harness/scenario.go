package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one offline-cache flow: what the remote API serves,
// which stories are already on the device, the steps a user takes, and
// assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Remote configures the stub story API.
	Remote RemoteSetup `yaml:"remote"`

	// Setup holds JSON story documents saved before the flow. Setup saves
	// must succeed.
	Setup []string `yaml:"setup,omitempty"`

	// Flow contains the steps, each with an optional expectation.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RemoteSetup configures the stub story API.
type RemoteSetup struct {
	// Stories is the feed served on success.
	Stories []RemoteStory `yaml:"stories,omitempty"`

	// Error fails the feed with this message. "unauthenticated" fails it
	// with remote.ErrUnauthenticated.
	Error string `yaml:"error,omitempty"`

	// Photos maps photo URLs to their bytes, written as text.
	Photos map[string]string `yaml:"photos,omitempty"`

	// PostError fails story uploads with this message.
	PostError string `yaml:"post_error,omitempty"`
}

// RemoteStory is a story in the stub feed.
type RemoteStory struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	PhotoURL    string   `yaml:"photo_url,omitempty"`
	CreatedAt   string   `yaml:"created_at,omitempty"`
	Lat         *float64 `yaml:"lat,omitempty"`
	Lon         *float64 `yaml:"lon,omitempty"`
}

// FlowStep is one user action.
type FlowStep struct {
	// Op is the action. See the Op constants.
	Op string `yaml:"op"`

	// Data is the JSON story document for OpSave.
	Data string `yaml:"data,omitempty"`

	// ID is the story id for OpDelete and OpDeleteTale, or the remote
	// story id for OpSaveOffline.
	ID string `yaml:"id,omitempty"`

	// Story is the new story for OpPublish.
	Story *NewStory `yaml:"story,omitempty"`

	// Expect validates the step's outcome. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// NewStory is a story the user publishes.
type NewStory struct {
	Description string   `yaml:"description"`
	Photo       string   `yaml:"photo"`
	Lat         *float64 `yaml:"lat,omitempty"`
	Lon         *float64 `yaml:"lon,omitempty"`
}

// Flow operations.
const (
	OpSave        = "save"
	OpDelete      = "delete"
	OpRenderHome  = "render_home"
	OpRenderTales = "render_tales"
	OpDeleteTale  = "delete_tale"
	OpCloseHome   = "close_home"
	OpCloseTales  = "close_tales"
	OpSaveOffline = "save_offline"
	OpPublish     = "publish"
)

// ExpectClause is a subset match on a step's outcome. Empty fields are not
// checked.
type ExpectClause struct {
	// Error is the expected error code, or "none".
	Error string `yaml:"error,omitempty"`

	// ID is the id a save returned.
	ID *int64 `yaml:"id,omitempty"`

	// Origin is the rendered page's origin.
	Origin string `yaml:"origin,omitempty"`

	// Message is the rendered page's empty-state message.
	Message string `yaml:"message,omitempty"`

	// Items is the number of rendered items.
	Items *int `yaml:"items,omitempty"`

	// Status is the publish status.
	Status string `yaml:"status,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stored_count": number of records in the local store
	// - "outstanding_refs": live media handles across all views
	// - "posted_count": stories the stub API accepted
	// - "feed_calls": times the remote feed was fetched
	// - "handles_released": every handle rendered by step Step is revoked
	Type string `yaml:"type"`

	// Count is the expected number.
	Count int `yaml:"count,omitempty"`

	// Step is a zero-based flow index (used by handles_released).
	Step int `yaml:"step,omitempty"`
}

// Assertion type constants.
const (
	AssertStoredCount     = "stored_count"
	AssertOutstandingRefs = "outstanding_refs"
	AssertPostedCount     = "posted_count"
	AssertFeedCalls       = "feed_calls"
	AssertHandlesReleased = "handles_released"
)

// Error codes used in expectations and traces.
const (
	CodeNone       = "none"
	CodeValidation = "validation"
	CodeConstraint = "constraint"
	CodeStorage    = "storage"
	CodeViewClosed = "view_closed"
	CodeInvalid    = "invalid_story"
	CodeNotFound   = "not_found"
	CodeOther      = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, len(s.Flow)); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step FlowStep) error {
	switch step.Op {
	case OpSave:
		if step.Data == "" {
			return fmt.Errorf("%s requires data", step.Op)
		}
	case OpDelete, OpDeleteTale, OpSaveOffline:
		if step.ID == "" {
			return fmt.Errorf("%s requires id", step.Op)
		}
	case OpPublish:
		if step.Story == nil {
			return fmt.Errorf("%s requires story", step.Op)
		}
	case OpRenderHome, OpRenderTales, OpCloseHome, OpCloseTales:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(a Assertion, steps int) error {
	switch a.Type {
	case AssertStoredCount, AssertOutstandingRefs, AssertPostedCount, AssertFeedCalls:
		if a.Count < 0 {
			return fmt.Errorf("%s count must be non-negative", a.Type)
		}
	case AssertHandlesReleased:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("%s step %d out of range", a.Type, a.Step)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
