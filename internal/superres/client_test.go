package superres

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_UpscaleRoundTrip(t *testing.T) {
	var gotFactor string
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFactor = r.URL.Query().Get("factor")
		gotContentType = r.Header.Get("Content-Type")

		// Answer with a fixed 4x4 image.
		out := imaging.New(4, 4, color.White)
		buf := new(bytes.Buffer)
		require.NoError(t, imaging.Encode(buf, out, imaging.PNG))

		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)

	in := imaging.New(2, 2, color.White)
	out, err := c.Upscale(context.Background(), in, 2)
	require.NoError(t, err)

	assert.Equal(t, "2", gotFactor)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, 4, out.Bounds().Dx())
}

func TestClient_UpscaleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)

	_, err := c.Upscale(context.Background(), imaging.New(2, 2, color.White), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model offline")
}

func TestClient_UpscaleUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := c.Upscale(context.Background(), imaging.New(2, 2, color.White), 2)
	require.Error(t, err)
}
