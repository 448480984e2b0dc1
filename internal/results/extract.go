package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

var (
	// ErrNoMatchingTests is returned when the process exited cleanly but the
	// result tree never populated. This is a reportable condition for the
	// caller (bad pattern, empty selection), never a success.
	ErrNoMatchingTests = errors.New("no tests matched the requested pattern")

	// ErrExtractionFailed is returned when reading the result tree failed
	// for a reason other than the tree not being populated yet.
	ErrExtractionFailed = errors.New("failed to extract test results")

	errTreeNotPopulated = errors.New("result tree is not populated yet")
)

// DefaultRetryPolicy matches the host reporting pipeline's typical fill-in
// latency: five attempts, 200ms apart.
var DefaultRetryPolicy = resiliency.FixedRetryPolicy{
	MaxAttempts: 5,
	Delay:       200 * time.Millisecond,
}

// Extract polls the result tree after the test process has terminated. The
// tree is built asynchronously by the host's own reporting machinery, so the
// read is retried on a fixed-delay budget. When the budget is exhausted the
// result is derived from the exit code alone: a non-zero code becomes a
// single synthetic failure entry; a zero code with no detail means no tests
// matched, which is reported as an error.
func Extract(ctx context.Context, policy resiliency.FixedRetryPolicy, read func() []*Node, exitCode int32) (Summary, error) {
	roots, err := resiliency.RetryGetFixed(ctx, policy, func() ([]*Node, error) {
		roots := read()
		if len(roots) == 0 {
			return nil, errTreeNotPopulated
		}
		return roots, nil
	})

	switch {
	case err == nil:
		return flatten(roots), nil

	case !errors.Is(err, errTreeNotPopulated):
		return Summary{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)

	case exitCode != 0:
		return Summary{
			Cases: []CaseResult{{
				Name:    "test process",
				Status:  StatusFailed,
				Defect:  DefectException,
				Message: fmt.Sprintf("test process exited with code %d before results were reported", exitCode),
			}},
			Failed:    1,
			Synthetic: true,
		}, nil

	default:
		return Summary{}, ErrNoMatchingTests
	}
}
