package job

import (
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
)

type Controller struct {
	svc        jsvc.Job
	logRoot    string
	outputRoot string
}

// New serves job requests from svc. Logs and artifacts are read from
// logRoot and outputRoot.
func New(svc jsvc.Job, logRoot, outputRoot string) *Controller {
	return &Controller{svc: svc, logRoot: logRoot, outputRoot: outputRoot}
}
