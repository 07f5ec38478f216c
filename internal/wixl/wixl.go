package wixl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/msipack/internal/logger"
)

// Toolset is the narrow contract the packaging pipeline needs from the
// msitools executables. Implementations report subprocess failures as
// *ToolError so exit codes survive to the caller.
type Toolset interface {
	// Harvest feeds the newline-delimited manifest to the harvester's standard
	// input and returns its standard output, the generated fragment text.
	Harvest(ctx context.Context, manifest []string, opts HarvestOptions) (string, error)
	// Link invokes the linker to produce the output package from the authored
	// definition file and the harvested fragment.
	Link(ctx context.Context, opts LinkOptions) error
}

// HarvestOptions carries the flags of a wixl-heat invocation.
type HarvestOptions struct {
	// SourcePrefix is stripped from manifest entries (-p), with trailing separator.
	SourcePrefix string
	// ComponentGroup names the component group the fragment declares (--component-group).
	ComponentGroup string
	// VarName is the variable referencing the staging root in the fragment (--var).
	VarName string
	// DirectoryRef anchors harvested components in the package tree (--directory-ref).
	DirectoryRef string
}

// Define is a single -D name=value substitution for the linker.
type Define struct {
	Name  string
	Value string
}

// LinkOptions carries the flags, inputs and environment of a wixl invocation.
type LinkOptions struct {
	// Defines are path/variable substitutions, passed in order.
	Defines []Define
	// Arch is the target architecture identifier (--arch).
	Arch string
	// OutputPath is where the linker writes the package (-o).
	OutputPath string
	// InputPaths are the definition files to link, in order.
	InputPaths []string
	// ExtraEnv entries (KEY=VALUE) are appended to the inherited environment,
	// overriding any inherited value for the same key.
	ExtraEnv []string
}

// ToolError reports a failed subprocess invocation.
type ToolError struct {
	// Tool is the executable that failed.
	Tool string
	// Args are the arguments it was invoked with.
	Args []string
	// Stderr is the captured error output, for diagnostics.
	Stderr string
	// Err is the underlying exec error.
	Err error
}

// Error renders the failure with the captured error output.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}

	return msg
}

// Unwrap exposes the underlying exec error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExitCode returns the subprocess exit code, or -1 when the process
// did not run or was terminated by a signal.
func (e *ToolError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

// ExecToolset drives wixl-heat and wixl as child processes.
type ExecToolset struct {
	heatPath string
	wixlPath string

	// execCC allows tests to substitute command construction.
	execCC func(context.Context, string, ...string) *exec.Cmd
}

// Option customizes an ExecToolset.
type Option func(*ExecToolset)

// WithExecCommand overrides how child process commands are constructed.
func WithExecCommand(cc func(context.Context, string, ...string) *exec.Cmd) Option {
	return func(t *ExecToolset) {
		t.execCC = cc
	}
}

// NewToolset returns a Toolset backed by the provided executables.
func NewToolset(heatPath, wixlPath string, opts ...Option) *ExecToolset {
	t := &ExecToolset{
		heatPath: heatPath,
		wixlPath: wixlPath,
		execCC:   exec.CommandContext,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Harvest runs the harvester with the manifest on standard input and captures
// the fragment it emits on standard output.
func (t *ExecToolset) Harvest(ctx context.Context, manifest []string, opts HarvestOptions) (string, error) {
	args := []string{
		"-p", opts.SourcePrefix,
		"--component-group", opts.ComponentGroup,
		"--var", opts.VarName,
		"--directory-ref", opts.DirectoryRef,
	}

	cmd := t.execCC(ctx, t.heatPath, args...)
	cmd.Stdin = strings.NewReader(strings.Join(manifest, "\n"))

	logger.DebugKV(ctx, "Running harvester", "cmd", strings.Join(cmd.Args, " "), "manifest_entries", len(manifest))

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr

	if err := cmd.Run(); err != nil {
		return "", &ToolError{Tool: t.heatPath, Args: args, Stderr: stderr.String(), Err: err}
	}

	return stdout.String(), nil
}

// Link runs the linker with the inherited environment plus ExtraEnv overrides.
// On success the package exists at opts.OutputPath; on failure no usable
// package is guaranteed and any partial output is left as-is.
func (t *ExecToolset) Link(ctx context.Context, opts LinkOptions) error {
	args := make([]string, 0, 2*len(opts.Defines)+4+len(opts.InputPaths))
	for _, def := range opts.Defines {
		args = append(args, "-D", def.Name+"="+def.Value)
	}

	args = append(args, "--arch", opts.Arch, "-o", opts.OutputPath)
	args = append(args, opts.InputPaths...)

	cmd := t.execCC(ctx, t.wixlPath, args...)
	// Later entries win for duplicate keys, so ExtraEnv overrides inherited values.
	cmd.Env = append(os.Environ(), opts.ExtraEnv...)

	logger.DebugKV(ctx, "Running linker", "cmd", strings.Join(cmd.Args, " "))

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: t.wixlPath, Args: args, Stderr: stderr.String(), Err: err}
	}

	return nil
}
