package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/labstack/echo/v4"
)

const keepAlive = 15 * time.Second

type Controller struct {
	bus       event.Bus
	keepAlive time.Duration
}

func New(bus event.Bus) *Controller {
	return &Controller{bus: bus, keepAlive: keepAlive}
}

// Stream relays bus events as server-sent events until the client
// goes away. Filters: job_id and a comma separated types list.
func (ctrl *Controller) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	jobIDStr := c.QueryParam("job_id")
	typesStr := c.QueryParam("types")

	filter := event.Filter{}

	if jobIDStr != "" {
		id, err := strconv.ParseUint(jobIDStr, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid job_id")
		}
		filter.JobID = id
	}

	if typesStr != "" {
		for _, s := range strings.Split(typesStr, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Types = append(filter.Types, event.Type(s))
			}
		}
	}

	ch, err := ctrl.bus.Subscribe(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable buffering in Nginx
	c.Response().WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(c.Response(), ": ping\n\n"); err != nil {
		return nil
	}
	c.Response().Flush()

	ticker := time.NewTicker(ctrl.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprintf(c.Response(), ": ping\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		case e, ok := <-ch:
			if !ok {
				return nil
			}

			data, err := json.Marshal(e)
			if err != nil {
				log.Error("failed to marshal event for SSE stream", "error", err)
				continue
			}

			if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}
