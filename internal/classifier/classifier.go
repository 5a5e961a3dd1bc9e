// Package classifier assigns (event type, severity, confidence) to candidate
// articles. An AI-backed classifier is tried first; on any failure, timeout,
// contract violation, or low confidence the deterministic keyword heuristic
// takes over, so Classify always returns a usable result.
package classifier

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/model"
)

// confidenceThreshold is the minimum AI confidence accepted before the
// result is discarded in favor of the heuristic.
const confidenceThreshold = 0.7

// aiClassifier is the AI collaborator contract.
type aiClassifier interface {
	Classify(ctx context.Context, title, description string) (model.ClassificationResult, error)
}

// Classifier orchestrates AI classification with heuristic fallback and the
// severity validation pass.
type Classifier struct {
	ai      aiClassifier
	timeout time.Duration
}

// New creates a Classifier. ai may be nil, in which case every article is
// classified heuristically.
func New(ai aiClassifier, timeout time.Duration) *Classifier {
	return &Classifier{ai: ai, timeout: timeout}
}

// Classify returns a classification for the article. It never fails: the
// heuristic is the guaranteed floor when the AI collaborator cannot be
// trusted. The returned severity has passed the validation/downgrade check.
func (c *Classifier) Classify(ctx context.Context, title, description string) model.ClassificationResult {
	result, ok := c.classifyAI(ctx, title, description)
	if !ok {
		result = classifyHeuristic(title, description)
	}

	// A tier unsupported by the text is downgraded exactly one step, so a
	// single keyword coincidence or an overconfident model cannot inflate
	// the classification by more than one tier.
	if !severitySupported(result.Severity, title, description) {
		result.Severity = result.Severity.Downgrade()
	}

	return result
}

func (c *Classifier) classifyAI(ctx context.Context, title, description string) (model.ClassificationResult, bool) {
	if c.ai == nil {
		return model.ClassificationResult{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.ai.Classify(ctx, title, description)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("title", title).Msg("ai classification failed, falling back to heuristic")
		return model.ClassificationResult{}, false
	}

	if result.Confidence < confidenceThreshold {
		zlog.Logger.Info().
			Float64("confidence", result.Confidence).
			Str("title", title).
			Msg("ai classification below confidence threshold, falling back to heuristic")
		return model.ClassificationResult{}, false
	}

	return result, true
}
