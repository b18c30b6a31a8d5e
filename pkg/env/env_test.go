package env

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type EnvTestSuite struct {
	suite.Suite
}

func (s *EnvTestSuite) SetupTest() {
	variables = new(Environment)
}

func (s *EnvTestSuite) TestProcess() {
	assert.Nil(s.T(), Process())
	vars := Variables()
	assert.Equal(s.T(), "info", vars.LogLevel)
	assert.Equal(s.T(), 5678, vars.Port)
	assert.Equal(s.T(), "sqlite", vars.DatabaseType)
	assert.Equal(s.T(), "just", vars.RunnerBinary)
	assert.Equal(s.T(), time.Second, vars.PollInterval)
	assert.Equal(s.T(), 10, vars.PageSize)
}

func (s *EnvTestSuite) TestProcessOverrides() {
	s.T().Setenv("KILN_WORK_DIR", "/srv/build")
	s.T().Setenv("KILN_POLL_INTERVAL", "250ms")
	s.T().Setenv("KILN_RUNNER_BINARY", "/usr/local/bin/just")

	assert.Nil(s.T(), Process())
	vars := Variables()
	assert.Equal(s.T(), "/srv/build", vars.WorkDir)
	assert.Equal(s.T(), 250*time.Millisecond, vars.PollInterval)
	assert.Equal(s.T(), "/usr/local/bin/just", vars.RunnerBinary)
}

func (s *EnvTestSuite) TestProcessInvalidTypeFailure() {
	s.T().Setenv("KILN_PORT", "not_a_port")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestProcessInvalidLogLevelFailure() {
	s.T().Setenv("KILN_LOG_LEVEL", "bogus")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestRoots() {
	vars := Environment{WorkDir: "/srv/build"}
	assert.Equal(s.T(), filepath.Join("/srv/build", "logs"), vars.LogRoot())
	assert.Equal(s.T(), "/srv/build", vars.OutputRoot())

	vars.LogDir = "/var/log/kiln"
	vars.OutputDir = "/srv/out"
	assert.Equal(s.T(), "/var/log/kiln", vars.LogRoot())
	assert.Equal(s.T(), "/srv/out", vars.OutputRoot())
}

func TestEnvTestSuite(t *testing.T) {
	suite.Run(t, new(EnvTestSuite))
}
