// Package recipe asks the command runner which recipes it can run.
package recipe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os/exec"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/kiln-build/kiln/pkg/log"
)

// Lister runs `<binary> --list` in the work directory.
type Lister struct {
	binary  string
	workDir string
}

func NewLister(binary, workDir string) *Lister {
	return &Lister{binary: binary, workDir: workDir}
}

// List returns the recipe lines printed by the runner, minus the
// header line, trimmed. The sequence is lazy and can be consumed
// only once.
func (l *Lister) List(ctx context.Context) (iter.Seq[string], error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, l.binary, "--list")
	cmd.Dir = l.workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			return nil, errs.Execution("list recipes", fmt.Errorf("%w: %s", err, msg))
		}
		return nil, errs.Execution("list recipes", err)
	}

	return lines(&stdout), nil
}

func lines(buf *bytes.Buffer) iter.Seq[string] {
	scanner := bufio.NewScanner(buf)
	// the whole listing is in memory, so any single line fits
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), max(buf.Len()+1, bufio.MaxScanTokenSize))
	header := true

	return func(yield func(string) bool) {
		for scanner.Scan() {
			if header {
				header = false
				continue
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Error("recipe listing truncated", "error", err)
		}
	}
}

// Name returns the recipe name of a listing line, dropping
// parameters and the trailing comment.
func Name(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Match keeps the lines whose recipe name matches the doublestar
// pattern. An empty pattern keeps everything.
func Match(seq iter.Seq[string], pattern string) (iter.Seq[string], error) {
	if pattern == "" {
		return seq, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errs.Validation("invalid recipe pattern %q", pattern)
	}

	return func(yield func(string) bool) {
		for line := range seq {
			if ok, _ := doublestar.Match(pattern, Name(line)); !ok {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}, nil
}
