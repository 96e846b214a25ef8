package execution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// FallbackDatasetPath is the fixed path every staged dataset is also
// written to, so generated code that assumes a conventional name works
// without knowing the upload's file name.
const FallbackDatasetPath = "dataset.csv"

// Context owns one interpreter and the dataset staged for it. It is the
// single writer for interpreter state: Execute serializes callers with a
// mutex, so two runs can never overlap on the same context.
type Context struct {
	engine       Engine
	workspaceDir string

	mu          sync.Mutex
	datasetName string
}

// NewContext wraps an engine whose working directory is workspaceDir.
func NewContext(engine Engine, workspaceDir string) *Context {
	return &Context{
		engine:       engine,
		workspaceDir: workspaceDir,
	}
}

// Execute runs a code block against the shared interpreter state.
func (c *Context) Execute(ctx context.Context, code string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Execute(ctx, code)
}

// LoadDataset stages an uploaded dataset in the interpreter's working
// directory under three names at once: the original file name, a
// normalized alias, and the fixed fallback path. Code written against any
// of the three conventions finds the file.
func (c *Context) LoadDataset(content []byte, fileName string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid dataset file name %q", fileName)
	}

	names := []string{base}
	if alias := NormalizeDatasetName(base); alias != base {
		names = append(names, alias)
	}
	if base != FallbackDatasetPath {
		names = append(names, FallbackDatasetPath)
	}

	staged := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(c.workspaceDir, name)
		if err := os.WriteFile(path, content, 0644); err != nil {
			return nil, fmt.Errorf("stage dataset as %s: %w", name, err)
		}
		staged = append(staged, name)
	}

	c.datasetName = base
	return staged, nil
}

// DatasetName returns the original file name of the staged dataset, or ""
// when none is loaded.
func (c *Context) DatasetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.datasetName
}

// WorkspaceDir returns the interpreter's working directory.
func (c *Context) WorkspaceDir() string {
	return c.workspaceDir
}

// Close shuts down the underlying engine.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Close()
}

var datasetNameCleaner = regexp.MustCompile(`[^a-z0-9._-]+`)

// NormalizeDatasetName lowercases a file name and collapses anything
// outside [a-z0-9._-] to underscores ("My Data (1).csv" -> "my_data_1_.csv"
// style aliases that pandas-oriented code tends to expect).
func NormalizeDatasetName(name string) string {
	return datasetNameCleaner.ReplaceAllString(strings.ToLower(name), "_")
}
