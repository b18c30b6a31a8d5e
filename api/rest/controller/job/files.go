package job

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiln-build/kiln/api/rest/respond"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/labstack/echo/v4"
)

// Log streams the job's combined output as plain text.
func (ctrl *Controller) Log(c echo.Context) error {
	id, err := respond.ID(c)
	if err != nil {
		return err
	}

	j, err := ctrl.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respond.Error(err)
	}

	f, err := os.Open(j.LogPath(ctrl.logRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "job has no log yet")
	}
	if err != nil {
		return respond.Error(err)
	}
	defer f.Close()

	return c.Stream(http.StatusOK, echo.MIMETextPlainCharsetUTF8, f)
}

// Artifact downloads the declared output of a successful job.
func (ctrl *Controller) Artifact(c echo.Context) error {
	id, err := respond.ID(c)
	if err != nil {
		return err
	}

	j, err := ctrl.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respond.Error(err)
	}

	path, ok := j.ArtifactPath(ctrl.outputRoot)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job declares no output")
	}
	if j.Status != models.StatusSuccess {
		return echo.NewHTTPError(http.StatusConflict, "job has not succeeded")
	}
	if !within(ctrl.outputRoot, path) {
		return echo.NewHTTPError(http.StatusForbidden, "output is outside the output directory")
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return echo.NewHTTPError(http.StatusNotFound, "artifact does not exist")
	}

	return c.Attachment(path, filepath.Base(path))
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
