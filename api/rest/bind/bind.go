package bind

import (
	"github.com/kiln-build/kiln/api/rest/controller/event"
	"github.com/kiln-build/kiln/api/rest/controller/job"
	"github.com/kiln-build/kiln/api/rest/controller/recipe"
	"github.com/labstack/echo/v4"
)

type Controllers struct {
	Job    *job.Controller
	Recipe *recipe.Controller
	Event  *event.Controller
}

func All(g *echo.Group, ctrls *Controllers) {
	Public(g, ctrls)
}

func Public(g *echo.Group, ctrls *Controllers) {
	// jobs
	{
		g.GET("/jobs", ctrls.Job.List)
		g.GET("/jobs/:id", ctrls.Job.Get)
		g.POST("/jobs", ctrls.Job.Post)
		g.DELETE("/jobs/:id", ctrls.Job.Delete)
		g.POST("/jobs/:id/reset", ctrls.Job.Reset)
		g.GET("/jobs/:id/log", ctrls.Job.Log)
		g.GET("/jobs/:id/artifact", ctrls.Job.Artifact)
	}

	// recipes
	{
		g.GET("/recipes", ctrls.Recipe.List)
	}

	// events
	{
		g.GET("/events", ctrls.Event.Stream)
	}
}
