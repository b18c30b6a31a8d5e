package job

import (
	"net/http"

	"github.com/kiln-build/kiln/api/rest/respond"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Post(c echo.Context) error {
	req := &jsvc.SubmitRequest{}

	if err := c.Bind(req); err != nil {
		return err
	}

	j, err := ctrl.svc.Submit(c.Request().Context(), req)
	if err != nil {
		log.Error("failed to submit job", "name", req.Name, "error", err)
		return respond.Error(err)
	}

	return c.JSON(http.StatusCreated, j)
}
