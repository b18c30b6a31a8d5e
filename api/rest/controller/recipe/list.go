package recipe

import (
	"net/http"
	"slices"

	"github.com/kiln-build/kiln/api/rest/respond"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	svc jsvc.Job
}

func New(svc jsvc.Job) *Controller {
	return &Controller{svc: svc}
}

// List returns the runner's recipes, filtered by the optional `match`
// glob.
func (ctrl *Controller) List(c echo.Context) error {
	seq, err := ctrl.svc.Recipes(c.Request().Context(), c.QueryParam("match"))
	if err != nil {
		return respond.Error(err)
	}

	recipes := slices.Collect(seq)
	if recipes == nil {
		recipes = []string{}
	}

	return c.JSON(http.StatusOK, recipes)
}
