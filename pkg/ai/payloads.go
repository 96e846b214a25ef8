// Package ai wraps the LLM provider behind typed notebook capabilities:
// data cleaning, data and model analysis, free-form output detection,
// model chat, and run improvement. Every capability builds a prompt,
// forces a JSON completion, validates the response shape, and returns a
// typed payload.
package ai

import (
	"github.com/modelpad/modelpad/pkg/errors"
	"github.com/modelpad/modelpad/pkg/parser"
)

// ColumnStats is the per-column summary sent to data-oriented prompts.
type ColumnStats struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Nulls    int      `json:"nulls"`
	Distinct int      `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
}

// CleanDataRequest asks for cleaning operations over a dataset profile.
type CleanDataRequest struct {
	Columns      []ColumnStats       `json:"columns"`
	SampleRows   []map[string]string `json:"sampleRows"`
	Stats        map[string]any      `json:"stats,omitempty"`
	UserFeedback string              `json:"userFeedback,omitempty"`
}

// CleaningOperation is one suggested transformation.
type CleaningOperation struct {
	Column    string `json:"column"`
	Operation string `json:"operation"`
	Rationale string `json:"rationale,omitempty"`
}

// QualityScore brackets dataset quality before and after cleaning.
type QualityScore struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// CleanDataResponse is the validated clean-data payload.
type CleanDataResponse struct {
	CleaningOperations []CleaningOperation `json:"cleaningOperations"`
	Summary            string              `json:"summary"`
	DataQualityScore   QualityScore        `json:"dataQualityScore"`
	Warnings           []string            `json:"warnings,omitempty"`
}

func (r *CleanDataResponse) validate() error {
	if r.Summary == "" {
		return errors.New(errors.ErrCodeAI, "clean-data response missing summary")
	}
	if r.CleaningOperations == nil {
		return errors.New(errors.ErrCodeAI, "clean-data response missing cleaningOperations")
	}
	return nil
}

// AnalyzeDataRequest asks for an exploratory analysis of a dataset.
type AnalyzeDataRequest struct {
	Columns    []ColumnStats       `json:"columns"`
	Stats      map[string]any      `json:"stats,omitempty"`
	SampleRows []map[string]string `json:"sampleRows"`
}

// MLRecommendation is one suggested modeling direction.
type MLRecommendation struct {
	TaskType     string   `json:"taskType"`
	TargetColumn string   `json:"targetColumn"`
	ModelType    string   `json:"modelType"`
	Features     []string `json:"features,omitempty"`
	Rationale    string   `json:"rationale,omitempty"`
}

// AnalyzeDataResponse is the validated analyze-data payload.
type AnalyzeDataResponse struct {
	DataDescription         string             `json:"dataDescription"`
	Insights                []string           `json:"insights"`
	SuggestedVisualizations []string           `json:"suggestedVisualizations"`
	MLRecommendations       []MLRecommendation `json:"mlRecommendations,omitempty"`
}

func (r *AnalyzeDataResponse) validate() error {
	if r.DataDescription == "" {
		return errors.New(errors.ErrCodeAI, "analyze-data response missing dataDescription")
	}
	if len(r.Insights) == 0 {
		return errors.New(errors.ErrCodeAI, "analyze-data response missing insights")
	}
	return nil
}

// AnalyzeModelRequest asks for an assessment of one trained model.
type AnalyzeModelRequest struct {
	ModelType       string   `json:"modelType"`
	Accuracy        float64  `json:"accuracy"`
	Features        []string `json:"features"`
	ConfusionMatrix [][]int  `json:"confusionMatrix,omitempty"`
	Code            string   `json:"code"`
	DatasetRows     int      `json:"datasetRows,omitempty"`
	DatasetColumns  int      `json:"datasetColumns,omitempty"`
}

// ModelStatistics is the strengths/weaknesses block of a model analysis.
type ModelStatistics struct {
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation"`
}

// FeatureExperiment is one suggested follow-up experiment.
type FeatureExperiment struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code"`
}

// AnalyzeModelResponse is the validated analyze-model payload.
type AnalyzeModelResponse struct {
	Analysis           string              `json:"analysis"`
	Statistics         ModelStatistics     `json:"statistics"`
	FeatureExperiments []FeatureExperiment `json:"featureExperiments,omitempty"`
}

func (r *AnalyzeModelResponse) validate() error {
	if r.Analysis == "" {
		return errors.New(errors.ErrCodeAI, "analyze-model response missing analysis")
	}
	return nil
}

// DetectRequest carries one executed cell's code and stdout.
type DetectRequest struct {
	Code   string `json:"code"`
	Stdout string `json:"stdout"`
}

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelChatRequest asks for a conversational answer plus optional
// runnable code.
type ModelChatRequest struct {
	Message             string             `json:"message"`
	DataContext         string             `json:"dataContext,omitempty"`
	ConversationHistory []ChatMessage      `json:"conversationHistory,omitempty"`
	MLRecommendations   []MLRecommendation `json:"mlRecommendations,omitempty"`
}

// ModelChatResponse is the validated model-chat payload. Code fields are
// optional; a pure-text answer is valid.
type ModelChatResponse struct {
	Response     string   `json:"response"`
	Code         string   `json:"code,omitempty"`
	ModelType    string   `json:"modelType,omitempty"`
	TargetColumn string   `json:"targetColumn,omitempty"`
	Features     []string `json:"features,omitempty"`
}

func (r *ModelChatResponse) validate() error {
	if r.Response == "" {
		return errors.New(errors.ErrCodeAI, "model-chat response missing response")
	}
	return nil
}

// RunSummary is the compact run shape embedded in improve prompts.
type RunSummary struct {
	Name      string  `json:"name"`
	ModelType string  `json:"modelType,omitempty"`
	Accuracy  float64 `json:"accuracy"`
}

// ImproveRequest asks for a concrete improvement over the latest run.
type ImproveRequest struct {
	SessionID string       `json:"sessionId"`
	LatestRun RunSummary   `json:"latestRun"`
	Code      string       `json:"code"`
	AllRuns   []RunSummary `json:"allRuns,omitempty"`
}

// ImprovedExperiment is the runnable improvement suggestion.
type ImprovedExperiment struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ImproveResponse is the validated improve payload.
type ImproveResponse struct {
	Diagnosis          string             `json:"diagnosis"`
	Suggestions        []string           `json:"suggestions"`
	ImprovedExperiment ImprovedExperiment `json:"improvedExperiment"`
}

func (r *ImproveResponse) validate() error {
	if r.Diagnosis == "" {
		return errors.New(errors.ErrCodeAI, "improve response missing diagnosis")
	}
	if r.ImprovedExperiment.Code == "" {
		return errors.New(errors.ErrCodeAI, "improve response missing improvedExperiment.code")
	}
	return nil
}

// detectPayload is the raw wire shape of a detection completion before
// metric normalization.
type detectPayload struct {
	Detected        bool                `json:"detected"`
	ModelType       string              `json:"modelType"`
	Metrics         map[string]float64  `json:"metrics"`
	ConfusionMatrix [][]int             `json:"confusionMatrix"`
	DatasetInfo     *parser.DatasetInfo `json:"datasetInfo"`
	Summary         string              `json:"summary"`
}
