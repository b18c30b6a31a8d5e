package env

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for kiln. A .env file in
// the working directory, when present, is loaded first and never
// overrides variables that are already set.
func Process() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to load .env file")
	}

	if err := envconfig.Process("kiln", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by kiln.
type Environment struct {
	LogLevel         string        `default:"info" split_words:"true"`
	Host             string        `default:"127.0.0.1"`
	Port             int           `default:"5678"`
	DatabaseType     string        `default:"sqlite" split_words:"true"`
	DatabaseDSN      string        `default:"tasks.db" split_words:"true"`
	WorkDir          string        `default:"." split_words:"true"`
	LogDir           string        `default:"" split_words:"true"`    // <work dir>/logs
	OutputDir        string        `default:"" split_words:"true"`    // <work dir>
	RunnerBinary     string        `default:"just" split_words:"true"`
	PollInterval     time.Duration `default:"1s" split_words:"true"`
	PageSize         int           `default:"10" split_words:"true"`
	SubscriberBuffer int           `default:"100" split_words:"true"`
	ShutdownTimeout  time.Duration `default:"10s" split_words:"true"`
}

// LogRoot is the directory holding the month-bucketed job logs.
func (e Environment) LogRoot() string {
	if e.LogDir != "" {
		return e.LogDir
	}
	return filepath.Join(e.WorkDir, "logs")
}

// OutputRoot is the directory job artifacts are resolved against.
func (e Environment) OutputRoot() string {
	if e.OutputDir != "" {
		return e.OutputDir
	}
	return e.WorkDir
}
