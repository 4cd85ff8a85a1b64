// Package invoke drives the external toolchain: the instrumented test
// run, profile merging and the coverage report command. The core never
// performs this I/O itself; it only consumes the report text produced
// here.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	profdataDir    = ".profdata"
	profdataFile   = ".profdata/unittest.profdata"
	profrawPattern = "default_*.profraw"
)

// CommandError wraps a failed external command with its captured
// output.
type CommandError struct {
	Name   string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v\n%s\n%s", e.Name, e.Err, e.Stdout, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// RunTests runs the project's test suite with coverage instrumentation
// enabled, leaving raw profile files in the project directory.
func RunTests(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "cargo", "test")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "RUSTFLAGS=-C instrument-coverage")
	_, err := run("cargo test", cmd)
	return err
}

// MergeProfile merges the raw profiles the test run produced into a
// single indexed profile under .profdata/, then removes the raw files.
func MergeProfile(ctx context.Context, dir string) error {
	if err := resetProfdataDir(dir); err != nil {
		return err
	}

	raws, err := profrawFiles(dir)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return fmt.Errorf("no %s files found in %s; did the instrumented test run succeed?", profrawPattern, dir)
	}

	args := append([]string{"merge", "-sparse"}, raws...)
	args = append(args, "-o", profdataFile)
	cmd := exec.CommandContext(ctx, "rust-profdata", args...)
	cmd.Dir = dir
	if _, err := run("rust-profdata merge", cmd); err != nil {
		return err
	}

	for _, raw := range raws {
		if err := os.Remove(filepath.Join(dir, raw)); err != nil {
			return fmt.Errorf("removing %s: %w", raw, err)
		}
	}
	return nil
}

// TestBinaries discovers the instrumented test executables by asking
// the build tool for its artifact messages and collecting the filenames
// of test-profile targets.
func TestBinaries(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "cargo", "test", "--no-run", "--message-format=json")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "RUSTFLAGS=-C instrument-coverage")
	stdout, err := run("cargo test --no-run", cmd)
	if err != nil {
		return nil, err
	}
	return parseArtifacts(stdout)
}

// artifactMessage is the subset of the build tool's JSON message stream
// needed to locate test binaries.
type artifactMessage struct {
	Profile struct {
		Test bool `json:"test"`
	} `json:"profile"`
	Filenames []string `json:"filenames"`
}

func parseArtifacts(stdout []byte) ([]string, error) {
	var binaries []string
	dec := json.NewDecoder(bytes.NewReader(stdout))
	for dec.More() {
		var msg artifactMessage
		if err := dec.Decode(&msg); err != nil {
			return nil, fmt.Errorf("parsing build tool output: %w", err)
		}
		if msg.Profile.Test {
			binaries = append(binaries, msg.Filenames...)
		}
	}
	return binaries, nil
}

// Report runs the coverage report command over the merged profile and
// returns its raw summary text. Region columns are suppressed and
// registry sources excluded, matching the table layout the parser
// expects.
func Report(ctx context.Context, dir string, objects []string) (string, error) {
	args := []string{
		"report",
		"--use-color",
		"--show-region-summary=false",
		"--ignore-filename-regex=/.cargo/registry",
		"-instr-profile", profdataFile,
	}
	for _, obj := range objects {
		args = append(args, "--object", obj)
	}
	cmd := exec.CommandContext(ctx, "rust-cov", args...)
	cmd.Dir = dir
	stdout, err := run("rust-cov report", cmd)
	if err != nil {
		return "", err
	}
	return string(stdout), nil
}

// profrawFiles returns the names of raw profile files in dir matching
// the instrumentation's default naming.
func profrawFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var raws []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(profrawPattern, entry.Name()); ok {
			raws = append(raws, entry.Name())
		}
	}
	return raws, nil
}

func resetProfdataDir(dir string) error {
	target := filepath.Join(dir, profdataDir)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("cleaning %s: %w", target, err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	return nil
}

func run(name string, cmd *exec.Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Name:   name,
			Stdout: strings.TrimSpace(stdout.String()),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}
