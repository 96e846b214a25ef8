package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// System prompts shared by all providers. Metric instructions are
// repeated in every metric-bearing prompt: values must be reported as
// fractions in [0,1] (0.87, never 87 or "87%"), and regression metrics
// must be reported as r2 rather than reusing the accuracy slot.
const (
	metricRules = "Report all metric values as decimal fractions between 0 and 1. " +
		"Convert percentages: 87% becomes 0.87. " +
		"For regression models report the coefficient of determination under the key \"r2\", not \"accuracy\"; " +
		"reserve \"accuracy\" for classification."

	systemCleanData = "You are a data cleaning assistant. Given column statistics and sample rows, " +
		"propose concrete cleaning operations. Respond with a single JSON object with keys: " +
		"cleaningOperations (array of {column, operation, rationale}), summary (string), " +
		"dataQualityScore ({before, after} in [0,1]), warnings (array of strings)."

	systemAnalyzeData = "You are a data analyst. Describe the dataset, surface insights, and recommend " +
		"machine learning approaches. Respond with a single JSON object with keys: dataDescription (string), " +
		"insights (array of strings), suggestedVisualizations (array of strings), " +
		"mlRecommendations (array of {taskType, targetColumn, modelType, features, rationale})."

	systemAnalyzeModel = "You are a model evaluation assistant. Assess the trained model and suggest " +
		"follow-up experiments as runnable Python. Respond with a single JSON object with keys: " +
		"analysis (string), statistics ({strengths, weaknesses, recommendation}), " +
		"featureExperiments (array of {name, description, code}). " + metricRules

	systemDetect = "You examine Python code and its stdout to decide whether a machine learning model " +
		"was trained and evaluated. Respond with a single JSON object with keys: detected (boolean), " +
		"modelType (string), metrics (object of metric name to number), confusionMatrix (array of arrays " +
		"of integers, or null), datasetInfo ({rows, columns, features} or null), summary (string). " +
		"When nothing model-related is present respond with {\"detected\": false}. " + metricRules

	systemModelChat = "You are a machine learning copilot inside a notebook. Answer the user's question; " +
		"when code would help, include complete runnable Python that prints its metrics using sentinel " +
		"lines (MODEL_TYPE:, ACCURACY:, and so on). Respond with a single JSON object with keys: " +
		"response (string), code (string or empty), modelType, targetColumn, features. " + metricRules

	systemImprove = "You diagnose why a model underperforms and propose one concrete improved experiment. " +
		"Respond with a single JSON object with keys: diagnosis (string), suggestions (array of strings), " +
		"improvedExperiment ({name, code}) where code is complete runnable Python. " + metricRules
)

func cleanDataPrompt(req *CleanDataRequest) string {
	var b strings.Builder
	writeJSONSection(&b, "Columns", req.Columns)
	writeJSONSection(&b, "Sample rows", req.SampleRows)
	if len(req.Stats) > 0 {
		writeJSONSection(&b, "Stats", req.Stats)
	}
	if req.UserFeedback != "" {
		fmt.Fprintf(&b, "User feedback: %s\n", req.UserFeedback)
	}
	b.WriteString("Propose cleaning operations for this dataset.")
	return b.String()
}

func analyzeDataPrompt(req *AnalyzeDataRequest) string {
	var b strings.Builder
	writeJSONSection(&b, "Columns", req.Columns)
	writeJSONSection(&b, "Sample rows", req.SampleRows)
	if len(req.Stats) > 0 {
		writeJSONSection(&b, "Stats", req.Stats)
	}
	b.WriteString("Analyze this dataset.")
	return b.String()
}

func analyzeModelPrompt(req *AnalyzeModelRequest, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model type: %s\nAccuracy: %g\n", req.ModelType, req.Accuracy)
	if len(req.Features) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(req.Features, ", "))
	}
	if req.DatasetRows > 0 {
		fmt.Fprintf(&b, "Dataset: %d rows x %d columns\n", req.DatasetRows, req.DatasetColumns)
	}
	if req.ConfusionMatrix != nil {
		writeJSONSection(&b, "Confusion matrix", req.ConfusionMatrix)
	}
	fmt.Fprintf(&b, "Training code:\n```python\n%s\n```\n", TruncateToBudget(req.Code, budget))
	b.WriteString("Assess this model.")
	return b.String()
}

func detectPrompt(req *DetectRequest, budget int) string {
	// stdout carries the signal; give it the larger share of the budget
	codeBudget := budget / 3
	stdoutBudget := budget - codeBudget
	return fmt.Sprintf("Code:\n```python\n%s\n```\n\nStdout:\n```\n%s\n```\n\nDid this train and evaluate a model?",
		TruncateToBudget(req.Code, codeBudget),
		TruncateToBudget(req.Stdout, stdoutBudget))
}

func modelChatPrompt(req *ModelChatRequest) string {
	var b strings.Builder
	if req.DataContext != "" {
		fmt.Fprintf(&b, "Data context:\n%s\n\n", req.DataContext)
	}
	if len(req.MLRecommendations) > 0 {
		writeJSONSection(&b, "Prior recommendations", req.MLRecommendations)
	}
	fmt.Fprintf(&b, "User: %s", req.Message)
	return b.String()
}

func improvePrompt(req *ImproveRequest, budget int) string {
	var b strings.Builder
	writeJSONSection(&b, "Latest run", req.LatestRun)
	if len(req.AllRuns) > 0 {
		writeJSONSection(&b, "All runs", req.AllRuns)
	}
	fmt.Fprintf(&b, "Current code:\n```python\n%s\n```\n", TruncateToBudget(req.Code, budget))
	b.WriteString("Diagnose the weakest point and propose one improved experiment.")
	return b.String()
}

func writeJSONSection(b *strings.Builder, title string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", title, data)
}
