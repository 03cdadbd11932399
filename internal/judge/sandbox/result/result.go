// Package result defines sandbox execution results.
package result

import "time"

// RunResult captures raw data from one process execution.
type RunResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	WallTime  time.Duration
	TimedOut  bool
	Truncated bool
}

// CompileResult contains compilation outcomes.
type CompileResult struct {
	OK       bool
	ExitCode int
	Log      string
	WallTime time.Duration
}

// ExecutionResult is what one sandboxed run of a program produces.
// CompileError is set only when compilation failed, in which case Stdout is empty
// and the program was never started.
type ExecutionResult struct {
	Stdout       string  `json:"stdout"`
	Stderr       string  `json:"stderr"`
	CompileError *string `json:"compileError,omitempty"`
	ExitCode     int     `json:"exitCode"`
}

// Compiled reports whether the program got past compilation.
func (r ExecutionResult) Compiled() bool {
	return r.CompileError == nil
}
