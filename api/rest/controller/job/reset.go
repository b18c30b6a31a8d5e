package job

import (
	"net/http"

	"github.com/kiln-build/kiln/api/rest/respond"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Reset(c echo.Context) error {
	id, err := respond.ID(c)
	if err != nil {
		return err
	}

	j, err := ctrl.svc.Reset(c.Request().Context(), id)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, j)
}
