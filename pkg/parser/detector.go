package parser

import "context"

// Detector extracts model results from one (code, stdout) pair.
type Detector interface {
	Detect(ctx context.Context, code, stdout string) (*DetectedModel, error)
}

// TaggedDetector is the deterministic tier-1 strategy.
type TaggedDetector struct{}

// Detect runs the sentinel-line extractor. It never fails and makes no
// network calls.
func (TaggedDetector) Detect(_ context.Context, _ string, stdout string) (*DetectedModel, error) {
	return ParseTagged(stdout), nil
}

// TwoTier tries the tagged extractor first and falls through to the
// remote heuristic detector only when tier 1 found nothing. A nil
// Fallback degrades to tagged-only detection.
type TwoTier struct {
	Fallback Detector
}

// Detect returns whichever tier succeeded. A fallback error propagates so
// the caller can treat "no detection" as the safe outcome; it is never a
// hard failure of the surrounding run.
func (t TwoTier) Detect(ctx context.Context, code, stdout string) (*DetectedModel, error) {
	dm := ParseTagged(stdout)
	if dm.Detected || t.Fallback == nil {
		return dm, nil
	}
	return t.Fallback.Detect(ctx, code, stdout)
}
