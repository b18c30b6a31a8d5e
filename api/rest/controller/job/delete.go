package job

import (
	"net/http"

	"github.com/kiln-build/kiln/api/rest/respond"
	"github.com/labstack/echo/v4"
)

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// Delete cancels the job. Deleting an unknown id is not an error.
func (ctrl *Controller) Delete(c echo.Context) error {
	id, err := respond.ID(c)
	if err != nil {
		return err
	}

	deleted, err := ctrl.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, &DeleteResponse{Deleted: deleted})
}
