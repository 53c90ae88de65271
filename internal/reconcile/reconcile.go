package reconcile

import (
	"fmt"
	"strings"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// DefaultThreshold is the generic confidence below which the AI extractor runs.
const DefaultThreshold = 0.5

type Policy string

const (
	// PolicyWholesale takes the AI result as-is whenever one is available.
	PolicyWholesale Policy = "wholesale"
	// PolicyMerge blends the two results field by field.
	PolicyMerge Policy = "merge"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyWholesale, nil
	case PolicyWholesale, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reconcile policy %q", s)
	}
}

type Reconciler struct {
	threshold float64
	policy    Policy
}

func NewReconciler(threshold float64, policy Policy) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if policy == "" {
		policy = PolicyWholesale
	}
	return &Reconciler{threshold: threshold, policy: policy}
}

func (r *Reconciler) Policy() Policy { return r.policy }

// NeedsAI reports whether the generic result is weak enough to ask the AI
// extractor. The comparison is strict: a confidence equal to the threshold
// does not trigger the AI pass.
func (r *Reconciler) NeedsAI(generic domain.ExtractionResult) bool {
	return generic.Confidence < r.threshold
}

// Reconcile returns the field set to price. A nil ai means the AI pass was not
// run or failed, and the generic result stands.
func (r *Reconciler) Reconcile(generic domain.ExtractionResult, ai *domain.ExtractionResult) domain.ExtractionResult {
	if ai == nil {
		return generic
	}
	if r.policy == PolicyMerge {
		return Merge(generic, *ai)
	}
	return *ai
}
