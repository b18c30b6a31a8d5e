package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kiln-build/kiln/internal/event"
)

// Events follows the server-sent event stream. The channel is closed
// when the stream ends or ctx is cancelled. A zero jobID follows every
// job.
func (c *Client) Events(ctx context.Context, jobID uint64, types []event.Type) (<-chan event.Event, error) {
	query := url.Values{}
	if jobID != 0 {
		query.Set("job_id", strconv.FormatUint(jobID, 10))
	}
	if len(types) > 0 {
		tStrs := make([]string, len(types))
		for i, t := range types {
			tStrs[i] = string(t)
		}
		query.Set("types", strings.Join(tStrs, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/v1/events", query), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	ch := make(chan event.Event, event.DefaultBufferSize)

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		var currentType event.Type
		var currentData []byte

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				if len(currentData) > 0 {
					var evt event.Event
					if err := json.Unmarshal(currentData, &evt); err == nil {
						if evt.Type == "" {
							evt.Type = currentType
						}
						select {
						case ch <- evt:
						case <-ctx.Done():
							return
						}
					}
				}
				currentType = ""
				currentData = nil
				continue
			}

			if bytes.HasPrefix(line, []byte(":")) {
				continue // keepalive
			}

			field, value, ok := bytes.Cut(line, []byte(":"))
			if !ok {
				continue
			}
			value = bytes.TrimPrefix(value, []byte(" "))

			switch string(bytes.TrimSpace(field)) {
			case "event":
				currentType = event.Type(value)
			case "data":
				// the scanner reuses its buffer
				currentData = append(currentData[:0], value...)
			}
		}
	}()

	return ch, nil
}
