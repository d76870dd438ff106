package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
)

// ghadapter runs a command that prints one JSON object, such as bin/diff,
// and exposes its top-level fields as GitHub Actions step outputs. The
// command's stdout is passed through and its exit code is preserved, so an
// unequal comparison still fails the step after its outputs are recorded.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command> [args...]\n", os.Args[0])
		os.Exit(2)
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "failed to run %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		exitCode = exitErr.ExitCode()
	}
	_, _ = os.Stdout.Write(output)

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open GITHUB_OUTPUT: %v\n", err)
			os.Exit(1)
		}
		if err := writeOutputs(f, output); err != nil {
			fmt.Fprintf(os.Stderr, "warning: no step outputs recorded: %v\n", err)
		}
		_ = f.Close()
	}

	os.Exit(exitCode)
}

// writeOutputs writes key=value lines sorted by key. Output that is not a
// JSON object writes nothing and is reported as an error.
func writeOutputs(w io.Writer, output []byte) error {
	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		return fmt.Errorf("command output is not a JSON object: %w", err)
	}

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, format(result[key])); err != nil {
			return err
		}
	}
	return nil
}

func format(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}
