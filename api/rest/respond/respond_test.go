package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", errs.Validation("name is required"), http.StatusBadRequest},
		{"not found", errs.NotFound(4), http.StatusNotFound},
		{"execution", errs.Execution("list recipes", cause), http.StatusBadGateway},
		{"store", errs.Store("insert job", cause), http.StatusInternalServerError},
		{"other", cause, http.StatusInternalServerError},
		{"http", echo.ErrTeapot, http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *echo.HTTPError
			require.True(t, errors.As(Error(tt.err), &he))
			assert.Equal(t, tt.code, he.Code)
		})
	}

	assert.NoError(t, Error(nil))
}

func TestID(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")

	id, err := ID(c)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		c.SetParamValues(bad)
		_, err := ID(c)
		var he *echo.HTTPError
		require.True(t, errors.As(err, &he), bad)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	}
}
