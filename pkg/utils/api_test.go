package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIGetDecodesJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"ok"}`))
	}))
	defer ts.Close()

	api := NewAPI(ts.URL+"/", ts.Client())
	assert.Equal(t, ts.URL, api.BaseURL())

	var out struct {
		Name string `json:"name"`
	}
	err := api.Get(context.Background(), "/items", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Name)
}

func TestAPIGetStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer ts.Close()

	err := NewAPI(ts.URL, ts.Client()).Get(context.Background(), "/x", nil, &struct{}{})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", string(statusErr.Body))
	assert.Contains(t, err.Error(), "502")
}

func TestAPIGetDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	err := NewAPI(ts.URL, ts.Client()).Get(context.Background(), "/x", nil, &struct{}{})
	assert.ErrorIs(t, err, ErrDecode)
}
