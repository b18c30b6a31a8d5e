package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/kiln-build/kiln/pkg/log"
)

// Executor runs a single job to completion. A nil error means the job
// succeeded; any error means it failed.
type Executor interface {
	Execute(job *models.Job) error
}

// ProcessExecutor runs jobs through the external command runner.
type ProcessExecutor struct {
	binary    string
	workDir   string
	logDir    string
	outputDir string
}

func NewProcessExecutor(binary, workDir, logDir, outputDir string) *ProcessExecutor {
	return &ProcessExecutor{
		binary:    binary,
		workDir:   workDir,
		logDir:    logDir,
		outputDir: outputDir,
	}
}

// LogPath is where the job's combined stdout/stderr is written.
func (e *ProcessExecutor) LogPath(job *models.Job) string {
	return job.LogPath(e.logDir)
}

// Execute invokes `<binary> <recipe> <args...>` in the work directory,
// waits for it, and checks the declared artifact. Diagnostics are
// appended to the job log. The process is never killed early.
func (e *ProcessExecutor) Execute(job *models.Job) error {
	logPath := e.LogPath(job)

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		log.Error("failed to create log directory", "job_id", job.ID, "dir", filepath.Dir(logPath), "error", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return errs.Execution("open job log", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			log.Error("failed to close job log", "job_id", job.ID, "error", err)
		}
	}()

	args := job.Args()
	if len(args) == 0 {
		return diagnose(logFile, errs.Validation("job %d has an empty command", job.ID))
	}

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.workDir
	// one descriptor for both streams keeps emission order in the log
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return diagnose(logFile, errs.Execution("Command failed to start", err))
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return diagnose(logFile, errs.Execution("Command failed", err))
		}
		if code := exitErr.ExitCode(); code >= 0 {
			return diagnose(logFile, fmt.Errorf("Command failed, return code: %d", code))
		}
		return diagnose(logFile, errors.New("Command terminated by signal"))
	}

	if artifact, ok := job.ArtifactPath(e.outputDir); ok {
		info, err := os.Stat(artifact)
		if err != nil || !info.Mode().IsRegular() {
			return diagnose(logFile, fmt.Errorf("Command finished, but output file %s does not exist", artifact))
		}
	}

	return nil
}

// diagnose appends the failure reason to the job log and returns it.
func diagnose(w io.Writer, err error) error {
	if _, writeErr := fmt.Fprintf(w, "%s\n", err); writeErr != nil {
		log.Error("failed to write job diagnostic", "error", writeErr)
	}
	return err
}
