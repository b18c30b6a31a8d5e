// Package respond translates service errors into HTTP errors.
package respond

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/labstack/echo/v4"
)

// Error maps the error taxonomy onto status codes. The cause is kept
// as the internal error so echo logs it; store failures are reported
// without detail.
func Error(err error) error {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, errs.ErrExecution):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}

// ID parses the :id path parameter.
func ID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid job id").SetInternal(err)
	}
	return id, nil
}
