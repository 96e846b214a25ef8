package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/modelpad/modelpad/pkg/config"
	"github.com/modelpad/modelpad/pkg/errors"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/model"
	"github.com/modelpad/modelpad/pkg/parser"
)

// Gateway exposes the notebook's LLM-backed capabilities over one
// configured provider. A nil provider is a valid state: every call then
// fails with a configuration error rather than a panic or a hang.
type Gateway struct {
	provider model.Provider
	limiter  *rate.Limiter
	logger   *logging.Logger
	budget   int
	timeout  time.Duration
}

// NewGateway wires a provider with the gateway's rate and token limits.
func NewGateway(provider model.Provider, cfg config.AIConfig, logger *logging.Logger) *Gateway {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = config.DefaultRatePerMinute
	}
	return &Gateway{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(perMinute)/60, perMinute),
		logger:   logger,
		budget:   cfg.PromptBudget,
		timeout:  cfg.RequestTimeout,
	}
}

// Ready reports whether a provider is configured.
func (g *Gateway) Ready() bool {
	return g.provider != nil
}

// CleanData proposes cleaning operations for a profiled dataset.
func (g *Gateway) CleanData(ctx context.Context, req *CleanDataRequest) (*CleanDataResponse, error) {
	var out CleanDataResponse
	if err := g.completeJSON(ctx, "clean-data", systemCleanData, cleanDataPrompt(req), &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeData produces an exploratory analysis with ML recommendations.
func (g *Gateway) AnalyzeData(ctx context.Context, req *AnalyzeDataRequest) (*AnalyzeDataResponse, error) {
	var out AnalyzeDataResponse
	if err := g.completeJSON(ctx, "analyze-data", systemAnalyzeData, analyzeDataPrompt(req), &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeModel assesses a trained model and suggests experiments.
func (g *Gateway) AnalyzeModel(ctx context.Context, req *AnalyzeModelRequest) (*AnalyzeModelResponse, error) {
	var out AnalyzeModelResponse
	if err := g.completeJSON(ctx, "analyze-model", systemAnalyzeModel, analyzeModelPrompt(req, g.budget), &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectModelOutput is the tier-2 free-form detector. The completion's
// metric map is normalized into the canonical slots.
func (g *Gateway) DetectModelOutput(ctx context.Context, req *DetectRequest) (*parser.DetectedModel, error) {
	var raw detectPayload
	if err := g.completeJSON(ctx, "detect-model-output", systemDetect, detectPrompt(req, g.budget), &raw); err != nil {
		return nil, err
	}
	return normalizeDetection(&raw), nil
}

// ModelChat answers a conversational message, optionally with code.
func (g *Gateway) ModelChat(ctx context.Context, req *ModelChatRequest) (*ModelChatResponse, error) {
	messages := []model.Message{{Role: "system", Content: systemModelChat}}
	for _, m := range req.ConversationHistory {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, model.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, model.Message{Role: "user", Content: modelChatPrompt(req)})

	content, err := g.complete(ctx, "model-chat", messages)
	if err != nil {
		return nil, err
	}

	var out ModelChatResponse
	if err := decodeCompletion(content, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Improve diagnoses the latest run and proposes one improved experiment.
func (g *Gateway) Improve(ctx context.Context, req *ImproveRequest) (*ImproveResponse, error) {
	var out ImproveResponse
	if err := g.completeJSON(ctx, "improve", systemImprove, improvePrompt(req, g.budget), &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) completeJSON(ctx context.Context, capability, system, user string, out any) error {
	content, err := g.complete(ctx, capability, []model.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return err
	}
	return decodeCompletion(content, out)
}

func (g *Gateway) complete(ctx context.Context, capability string, messages []model.Message) (string, error) {
	if g.provider == nil {
		return "", errors.New(errors.ErrCodeConfig, "no AI provider configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAI, "rate limit wait aborted")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, model.Request{
		Model:       g.provider.DefaultModel(),
		Messages:    messages,
		Temperature: 0.2,
		JSONOnly:    true,
	})
	if err != nil {
		g.logger.Error(logging.CategoryGateway, "completion_failed", err.Error(), map[string]any{
			"capability": capability,
			"provider":   g.provider.ID(),
		})
		return "", errors.Wrap(err, errors.ErrCodeAI, capability+" completion failed")
	}

	g.logger.Info(logging.CategoryGateway, "completion", "", map[string]any{
		"capability": capability,
		"provider":   g.provider.ID(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return resp.Content, nil
}

// decodeCompletion parses the JSON object out of a completion. Models
// wrap JSON in markdown fences or preamble text often enough that we cut
// from the first '{' to the last '}' before unmarshalling.
func decodeCompletion(content string, out any) error {
	payload := extractJSON(content)
	if payload == "" {
		return errors.New(errors.ErrCodeAI, "completion contained no JSON object")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return errors.Wrap(err, errors.ErrCodeAI, "malformed completion JSON")
	}
	return nil
}

func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if fenced := strings.TrimPrefix(content, "```json"); fenced != content {
		content = fenced
	} else {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// Canonical metric slots; anything else lands in CustomMetrics.
var slotNames = map[string]string{
	"accuracy":  "accuracy",
	"precision": "precision",
	"recall":    "recall",
	"f1score":   "f1Score",
	"f1_score":  "f1Score",
	"f1":        "f1Score",
	"loss":      "loss",
}

func normalizeDetection(raw *detectPayload) *parser.DetectedModel {
	dm := &parser.DetectedModel{
		Detected:    raw.Detected,
		ModelType:   raw.ModelType,
		DatasetInfo: raw.DatasetInfo,
		Summary:     raw.Summary,
	}
	if isSquareMatrix(raw.ConfusionMatrix) {
		dm.ConfusionMatrix = raw.ConfusionMatrix
	}

	for name, value := range raw.Metrics {
		v := normalizeFraction(name, value)
		switch slotNames[strings.ToLower(name)] {
		case "accuracy":
			dm.Metrics.Accuracy = &v
		case "precision":
			dm.Metrics.Precision = &v
		case "recall":
			dm.Metrics.Recall = &v
		case "f1Score":
			dm.Metrics.F1Score = &v
		case "loss":
			dm.Metrics.Loss = &v
		default:
			if dm.Metrics.CustomMetrics == nil {
				dm.Metrics.CustomMetrics = map[string]float64{}
			}
			dm.Metrics.CustomMetrics[name] = v
		}
	}
	return dm
}

// normalizeFraction rescales percentage-style values the model reported
// despite the prompt rules. Only fraction-natured metrics are rescaled;
// loss and other open-ended values pass through.
func normalizeFraction(name string, v float64) float64 {
	switch strings.ToLower(name) {
	case "accuracy", "precision", "recall", "f1score", "f1_score", "f1", "r2":
		if v > 1 && v <= 100 {
			return v / 100
		}
	}
	return v
}

func isSquareMatrix(m [][]int) bool {
	if len(m) == 0 {
		return false
	}
	for _, row := range m {
		if len(row) != len(m) {
			return false
		}
	}
	return true
}
