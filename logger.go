package savouragent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// StepLogger is the interface for recording pipeline step activity.
type StepLogger interface {
	LogStep(step StepLog) error
}

// NewStepLogFilePath returns a file path based on a cleaned up model name or id
// to make it easier to identify logs produced with various models.
func NewStepLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// StepLog represents a single state-machine step in a conversation session.
type StepLog struct {
	SessionID     string    `json:"session_id"`
	Step          string    `json:"step"`
	Timestamp     time.Time `json:"timestamp"`
	Input         string    `json:"input,omitempty"`
	Output        any       `json:"output,omitempty"`
	EstimatedCost float64   `json:"estimated_cost,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// FileStepLogger logs to a file, accumulating steps and flushing at the end.
type FileStepLogger struct {
	steps  []StepLog
	writer io.Writer
}

// NewFileStepLogger creates a new file-based step logger.
func NewFileStepLogger(writer io.Writer) *FileStepLogger {
	return &FileStepLogger{
		steps:  make([]StepLog, 0),
		writer: writer,
	}
}

// LogStep buffers a step log entry (does not flush immediately).
func (fsl *FileStepLogger) LogStep(step StepLog) error {
	fsl.steps = append(fsl.steps, step)
	return nil
}

// Flush writes all accumulated steps to the writer.
func (fsl *FileStepLogger) Flush() error {
	if fsl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"session_steps": map[string]any{
			"timestamp": time.Now(),
			"steps":     fsl.steps,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal step log: %w", err)
	}

	if _, err := fsl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write step log: %w", err)
	}

	fsl.steps = fsl.steps[:0]
	return nil
}

// NoOpStepLogger discards all step logs.
type NoOpStepLogger struct{}

func NewNoOpStepLogger() *NoOpStepLogger { return &NoOpStepLogger{} }

func (nop *NoOpStepLogger) LogStep(step StepLog) error { return nil }

// StdoutStepLogger writes each step as a JSON line to stdout (for Lambda/CloudWatch).
type StdoutStepLogger struct{}

func NewStdoutStepLogger() *StdoutStepLogger { return &StdoutStepLogger{} }

func (l *StdoutStepLogger) LogStep(step StepLog) error {
	data, err := json.Marshal(step)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
