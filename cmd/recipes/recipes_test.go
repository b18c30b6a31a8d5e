package recipes

import (
	"bytes"
	"context"
	"iter"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/kiln-build/kiln/api"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/store/storetest"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lister []string

func (l lister) List(context.Context) (iter.Seq[string], error) {
	return slices.Values([]string(l)), nil
}

func TestRecipesCmd(t *testing.T) {
	bus := event.New()
	server := api.New(api.Config{
		Jobs:     jsvc.Service(storetest.Open(t), nil, bus, lister{"build_app target", "build_docs", "lint"}, 0),
		Bus:      bus,
		Registry: prometheus.NewRegistry(),
	})
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	base, err := url.Parse(ts.URL)
	require.NoError(t, err)

	prev := newClient
	newClient = func() (*client.Client, error) {
		return client.New(&client.Config{BaseURL: base, HTTPTimeout: 5 * time.Second}), nil
	}
	defer func() { newClient = prev }()

	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetArgs([]string{"--match", "build_*"})
	require.NoError(t, Cmd.Execute())

	assert.Equal(t, "build_app target\nbuild_docs\n", out.String())
}
