package execution

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

//go:embed driver.py
var driverSource string

// Large model dumps and verbose training loops produce big stdout payloads.
const maxFrameSize = 16 * 1024 * 1024

// PythonEngine runs a long-lived python child process executing code blocks
// against one shared globals dict. The child speaks newline-delimited JSON
// on stdin/stdout; user prints are captured inside the driver, so the
// process stdout stream carries only protocol frames.
type PythonEngine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	frames *bufio.Scanner
	stderr *strings.Builder

	mu     sync.Mutex
	closed bool
}

// NewPythonEngine starts the interpreter. workspaceDir becomes the child's
// working directory, which is where datasets are staged.
func NewPythonEngine(python, workspaceDir string) (*PythonEngine, error) {
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, "-u", "-c", driverSource)
	cmd.Dir = workspaceDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", python, err)
	}

	frames := bufio.NewScanner(stdout)
	frames.Buffer(make([]byte, 64*1024), maxFrameSize)

	return &PythonEngine{
		cmd:    cmd,
		stdin:  stdin,
		frames: frames,
		stderr: &stderr,
	}, nil
}

type driverRequest struct {
	Code string `json:"code"`
}

type driverResponse struct {
	OK     bool    `json:"ok"`
	Stdout string  `json:"stdout"`
	Error  *string `json:"error"`
}

// Execute sends one code block to the child and blocks until it responds.
// There is no deadline: a hung execution blocks this call indefinitely
// (known limitation of the adapter contract).
func (e *PythonEngine) Execute(ctx context.Context, code string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := json.Marshal(driverRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	frame = append(frame, '\n')

	if _, err := e.stdin.Write(frame); err != nil {
		return nil, fmt.Errorf("write to interpreter: %w (stderr: %s)", err, e.stderrTail())
	}

	if !e.frames.Scan() {
		if err := e.frames.Err(); err != nil {
			return nil, fmt.Errorf("read from interpreter: %w", err)
		}
		return nil, fmt.Errorf("interpreter exited: %s", e.stderrTail())
	}

	var resp driverResponse
	if err := json.Unmarshal(e.frames.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode interpreter frame: %w", err)
	}

	result := &Result{
		Success: resp.OK,
		Stdout:  resp.Stdout,
	}
	if resp.Error != nil {
		result.Error = *resp.Error
	}
	return result, nil
}

// Close shuts the interpreter down.
func (e *PythonEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.stdin.Close()
	if e.cmd.Process != nil {
		// Closing stdin ends the driver's read loop; Wait reaps it. Kill
		// covers an interpreter stuck inside user code.
		done := make(chan error, 1)
		go func() { done <- e.cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			_ = e.cmd.Process.Kill()
			return <-done
		}
	}
	return nil
}

func (e *PythonEngine) stderrTail() string {
	s := e.stderr.String()
	if len(s) > 2048 {
		s = s[len(s)-2048:]
	}
	return strings.TrimSpace(s)
}
