package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MonthLayout formats the month bucket a job's log is written under.
const MonthLayout = "2006-01"

// Job is one submitted build: a recipe invocation for the command
// runner plus its status bookkeeping.
type Job struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id" yaml:"id"`
	Name      string    `gorm:"not null" json:"name" yaml:"name"`
	Command   string    `gorm:"not null" json:"command" yaml:"command"`
	Output    *string   `json:"output,omitempty" yaml:"output,omitempty"`
	Status    Status    `gorm:"type:text;index;not null" json:"status" yaml:"status"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at" yaml:"updated_at"`
}

type Jobs []*Job

// Month is the YYYY-MM bucket derived from the creation time.
func (j *Job) Month() string {
	return j.CreatedAt.UTC().Format(MonthLayout)
}

// LogPath is <root>/<YYYY-MM>/<id>.log.
func (j *Job) LogPath(root string) string {
	return filepath.Join(root, j.Month(), fmt.Sprintf("%d.log", j.ID))
}

// ArtifactPath resolves the expected artifact against root. The
// second result is false when the job declares no output.
func (j *Job) ArtifactPath(root string) (string, bool) {
	if j.Output == nil || *j.Output == "" {
		return "", false
	}
	return filepath.Join(root, *j.Output), true
}

// Args splits the command on whitespace into the recipe name
// followed by its arguments.
func (j *Job) Args() []string {
	return strings.Fields(j.Command)
}

// SameDay reports whether the job was created on the same UTC
// calendar day as now.
func (j *Job) SameDay(now time.Time) bool {
	cy, cm, cd := j.CreatedAt.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return cy == ny && cm == nm && cd == nd
}
