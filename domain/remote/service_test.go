package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/sensesafe-go/config"
)

func TestHTTPService_WireContract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"predictions":[
			{"x":100,"y":50,"width":40,"height":20,"confidence":0.85,"class":"door","class_name":"Door"},
			{"x":10,"y":10,"width":4,"height":4,"confidence":0.5,"class":"stairs"},
			{"x":1,"y":1,"width":1,"height":1,"confidence":0.1}
		]}`))
	}))
	defer srv.Close()

	svc := NewHTTPService(config.ServiceConfig{Name: "doors", URL: srv.URL, Key: "secret"}, srv.Client())
	preds, err := svc.Detect(context.Background(), "aGVsbG8=")
	require.NoError(t, err)

	assert.Equal(t, "secret", got["api_key"])
	img := got["inputs"].(map[string]any)["image"].(map[string]any)
	assert.Equal(t, "base64", img["type"])
	assert.Equal(t, "aGVsbG8=", img["value"])

	require.Len(t, preds, 3)
	assert.Equal(t, 100.0, preds[0].CenterX)
	assert.Equal(t, "Door", preds[0].LabelOr(""))
	assert.Equal(t, "stairs", preds[1].LabelOr(""))
	assert.Nil(t, preds[2].Label)
}

func TestHTTPService_EmptyOrMissingPredictions(t *testing.T) {
	for _, body := range []string{`{}`, `{"predictions":[]}`, `{"predictions":null}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		svc := NewHTTPService(config.ServiceConfig{Name: "windows", URL: srv.URL, Key: "k"}, srv.Client())
		preds, err := svc.Detect(context.Background(), "x")
		srv.Close()
		require.NoError(t, err, body)
		assert.NotNil(t, preds, body)
		assert.Empty(t, preds, body)
	}
}

func TestHTTPService_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		case "/garbage":
			_, _ = w.Write([]byte(`{"predictions": [`))
		}
	}))
	defer srv.Close()

	_, err := NewHTTPService(config.ServiceConfig{Name: "stairs", URL: srv.URL + "/status", Key: "k"}, srv.Client()).Detect(context.Background(), "x")
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Error(), "quota exceeded")

	_, err = NewHTTPService(config.ServiceConfig{Name: "stairs", URL: srv.URL + "/garbage", Key: "k"}, srv.Client()).Detect(context.Background(), "x")
	require.Error(t, err)

	_, err = NewHTTPService(config.ServiceConfig{Name: "stairs", URL: srv.URL}, nil).Detect(context.Background(), "x")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestHTTPService_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewHTTPService(config.ServiceConfig{Name: "windows", URL: srv.URL, Key: "k"}, NewHTTPClient(time.Second, 50*time.Millisecond))
	start := time.Now()
	_, err := svc.Detect(context.Background(), "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUpload_BoundsLongestSide(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 2560, 1440))
	out := BoundUpload(big, 1280)
	assert.Equal(t, image.Pt(1280, 720), out.Bounds().Size())

	small := image.NewRGBA(image.Rect(0, 0, 640, 480))
	assert.Same(t, small, BoundUpload(small, 1280))

	tall := image.NewRGBA(image.Rect(0, 0, 500, 2000))
	assert.Equal(t, image.Pt(320, 1280), BoundUpload(tall, 1280).Bounds().Size())

	payload, n, err := EncodeUpload(out, 0)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Equal(t, n, len(raw))
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}
