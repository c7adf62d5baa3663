package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient(Options{Timeout: 5 * time.Second, MaxElapsed: 10 * time.Second})
}

func TestGetDecodesBodies(t *testing.T) {
	const body = "Div,Date,HomeTeam,AwayTeam,FTR\nE0,17/08/2024,Arsenal,Wolves,H\n"
	var br, gz bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(body))
	bw.Close()
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(body))
	gw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			w.Write(br.Bytes())
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(gz.Bytes())
		default:
			w.Write([]byte(body))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/br", "/gzip", "/plain"} {
		got, err := testClient().Get(context.Background(), srv.URL+path, nil)
		require.NoError(t, err, path)
		assert.Equal(t, body, string(got), path)
	}
}

func TestGetSendsHeaders(t *testing.T) {
	var token, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Auth-Token")
		agent = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient(Options{UserAgent: "footcast-test"})
	_, err := c.Get(context.Background(), srv.URL, map[string]string{"X-Auth-Token": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.Equal(t, "footcast-test", agent)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := testClient().Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), srv.URL, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := testClient().Get(ctx, srv.URL, nil)
	assert.Error(t, err)
}
