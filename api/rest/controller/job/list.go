package job

import (
	"net/http"

	"github.com/kiln-build/kiln/api/rest/respond"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) List(c echo.Context) error {
	req := &jsvc.ListRequest{Page: 1}

	err := echo.QueryParamsBinder(c).
		Int("page", &req.Page).
		Int("page_size", &req.PageSize).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid paging parameters").SetInternal(err)
	}

	resp, err := ctrl.svc.List(c.Request().Context(), req)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, resp)
}
