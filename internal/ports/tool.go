package ports

import "context"

// ToolResult is the captured outcome of one external tool invocation.
type ToolResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// ToolRunner runs external programs to completion.
// Production code uses the exectool adapter; tests use MockToolRunner.
type ToolRunner interface {
	// Run executes name with args and waits for it to exit.
	// A non-zero exit status is reported through ToolResult.ExitCode with a
	// nil error; an error is returned only when the program could not be run.
	Run(ctx context.Context, name string, args ...string) (ToolResult, error)
}
