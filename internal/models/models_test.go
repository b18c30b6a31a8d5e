package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ModelsTestSuite struct {
	suite.Suite
}

func (s *ModelsTestSuite) TestTransitions() {
	legal := map[Status][]Status{
		StatusPending: {StatusRunning},
		StatusRunning: {StatusSuccess, StatusFailed},
		StatusFailed:  {StatusPending},
	}

	all := []Status{StatusPending, StatusRunning, StatusSuccess, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, allowed := range legal[from] {
				if allowed == to {
					want = true
				}
			}
			assert.Equal(s.T(), want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func (s *ModelsTestSuite) TestIsFinal() {
	assert.False(s.T(), StatusPending.IsFinal())
	assert.False(s.T(), StatusRunning.IsFinal())
	assert.True(s.T(), StatusSuccess.IsFinal())
	assert.True(s.T(), StatusFailed.IsFinal())
}

func (s *ModelsTestSuite) TestParseStatus() {
	st, err := ParseStatus(" failed ")
	s.Require().NoError(err)
	assert.Equal(s.T(), StatusFailed, st)
	assert.True(s.T(), st.Valid())

	_, err = ParseStatus("queued")
	assert.Error(s.T(), err)
	assert.False(s.T(), Status("queued").Valid())
}

func (s *ModelsTestSuite) TestPaths() {
	out := "out/app.bin"
	job := &Job{
		ID:        17,
		Command:   "compile  release\tfast",
		Output:    &out,
		CreatedAt: time.Date(2026, time.March, 31, 23, 30, 0, 0, time.FixedZone("X", -2*3600)),
	}

	// 23:30 at UTC-2 is already April in UTC.
	assert.Equal(s.T(), "2026-04", job.Month())
	assert.Equal(s.T(), filepath.Join("/logs", "2026-04", "17.log"), job.LogPath("/logs"))

	path, ok := job.ArtifactPath("/work")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), filepath.Join("/work", "out", "app.bin"), path)

	assert.Equal(s.T(), []string{"compile", "release", "fast"}, job.Args())

	job.Output = nil
	_, ok = job.ArtifactPath("/work")
	assert.False(s.T(), ok)
}

func (s *ModelsTestSuite) TestSameDay() {
	job := &Job{CreatedAt: time.Date(2026, time.October, 19, 0, 5, 0, 0, time.UTC)}
	assert.True(s.T(), job.SameDay(time.Date(2026, time.October, 19, 23, 59, 0, 0, time.UTC)))
	assert.False(s.T(), job.SameDay(time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)))
}

func TestModelsTestSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}
