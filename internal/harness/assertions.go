package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/store"
	"github.com/roach88/taleweaver/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, st := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", st.Step, st.Op)
		if st.Error != "" {
			fmt.Fprintf(&buf, " error=%s", st.Error)
		}
		fmt.Fprintf(&buf, " outstanding=%d\n", st.Outstanding)
	}

	return buf.String()
}

// AssertionContext gives assertions access to the scenario's components.
type AssertionContext struct {
	Ctx      context.Context
	Stories  *store.Stories
	Registry *media.Registry
	Remote   *testutil.StubRemote
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStoredCount:
			err = assertStoredCount(actx, result.Trace, assertion)
		case AssertOutstandingRefs:
			err = assertCount(result.Trace, assertion, actx.Registry.Outstanding())
		case AssertPostedCount:
			err = assertCount(result.Trace, assertion, len(actx.Remote.Posted()))
		case AssertFeedCalls:
			err = assertCount(result.Trace, assertion, actx.Remote.FeedCalls())
		case AssertHandlesReleased:
			err = assertHandlesReleased(actx.Registry, result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func assertStoredCount(actx *AssertionContext, trace []StepTrace, a Assertion) error {
	n, err := actx.Stories.Count(actx.Ctx)
	if err != nil {
		return fmt.Errorf("%s: count stories: %w", a.Type, err)
	}
	return assertCount(trace, a, n)
}

func assertCount(trace []StepTrace, a Assertion, actual int) error {
	if actual != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d", a.Count),
			Actual:   fmt.Sprintf("%d", actual),
			Trace:    trace,
		}
	}
	return nil
}

// assertHandlesReleased checks that no handle a step rendered still resolves.
func assertHandlesReleased(reg *media.Registry, trace []StepTrace, a Assertion) error {
	if a.Step >= len(trace) || trace[a.Step].Page == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a rendered page at step %d", a.Step),
			Actual:   "no page",
			Trace:    trace,
		}
	}

	var live []string
	for _, item := range trace[a.Step].Page.Items {
		if item.ImageSource != feed.ImageReference {
			continue
		}
		if _, err := reg.Resolve(item.Image); !errors.Is(err, media.ErrUnknownHandle) {
			live = append(live, item.Image)
		}
	}
	if len(live) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("every handle from step %d released", a.Step),
			Actual:   fmt.Sprintf("still live: %s", strings.Join(live, ", ")),
			Trace:    trace,
		}
	}
	return nil
}
