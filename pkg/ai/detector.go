package ai

import (
	"context"

	"github.com/modelpad/modelpad/pkg/parser"
)

// Detector adapts the gateway's free-form detection to the parser's
// Detector interface, for use as the tier-2 fallback.
type Detector struct {
	Gateway *Gateway
}

func (d Detector) Detect(ctx context.Context, code, stdout string) (*parser.DetectedModel, error) {
	return d.Gateway.DetectModelOutput(ctx, &DetectRequest{Code: code, Stdout: stdout})
}
