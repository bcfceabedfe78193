package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/domain/detection"
)

const (
	DefaultConnectTimeout   = 30 * time.Second
	DefaultReadWriteTimeout = 60 * time.Second

	maxResponseBytes = 8 << 20
	maxErrorBody     = 256
)

// Service is one remote detection model.
type Service interface {
	Name() string
	// Configured reports whether the service can be called at all.
	Configured() bool
	// Detect submits a base64 encoded image and returns its predictions.
	Detect(ctx context.Context, imageB64 string) ([]detection.RemotePrediction, error)
}

type detectRequest struct {
	APIKey string       `json:"api_key"`
	Inputs detectInputs `json:"inputs"`
}

type detectInputs struct {
	Image detectImage `json:"image"`
}

type detectImage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type wirePrediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
	ClassName  string  `json:"class_name"`
}

type detectResponse struct {
	Predictions []wirePrediction `json:"predictions"`
}

func (p wirePrediction) toPrediction() detection.RemotePrediction {
	out := detection.RemotePrediction{
		CenterX:    p.X,
		CenterY:    p.Y,
		Width:      p.Width,
		Height:     p.Height,
		Confidence: p.Confidence,
	}
	label := strings.TrimSpace(p.ClassName)
	if label == "" {
		label = strings.TrimSpace(p.Class)
	}
	if label != "" {
		out.Label = &label
	}
	return out
}

// NewHTTPClient returns a client with separate connect and read/write
// budgets. The overall request deadline covers the upload, the wait for
// headers and the body read.
func NewHTTPClient(connect, readWrite time.Duration) *http.Client {
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	if readWrite <= 0 {
		readWrite = DefaultReadWriteTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: readWrite,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: connect + 2*readWrite}
}

// HTTPService calls a detection endpoint with the JSON wire contract:
// {"api_key", "inputs": {"image": {"type": "base64", "value"}}} in,
// {"predictions": [...]} out.
type HTTPService struct {
	name   string
	url    string
	key    string
	client *http.Client
}

// NewHTTPService builds a service from its config entry. A nil client selects
// NewHTTPClient with default timeouts.
func NewHTTPService(sc config.ServiceConfig, client *http.Client) *HTTPService {
	if client == nil {
		client = NewHTTPClient(0, 0)
	}
	return &HTTPService{
		name:   sc.Name,
		url:    strings.TrimSpace(sc.URL),
		key:    strings.TrimSpace(sc.Key),
		client: client,
	}
}

func (s *HTTPService) Name() string { return s.name }

func (s *HTTPService) Configured() bool { return s.url != "" && s.key != "" }

// Detect posts the image and decodes the predictions. A missing or empty
// predictions array yields an empty, non-nil slice.
func (s *HTTPService) Detect(ctx context.Context, imageB64 string) ([]detection.RemotePrediction, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(detectRequest{
		APIKey: s.key,
		Inputs: detectInputs{Image: detectImage{Type: "base64", Value: imageB64}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", s.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", s.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Service: s.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	var decoded detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", s.name, err)
	}
	out := make([]detection.RemotePrediction, 0, len(decoded.Predictions))
	for _, p := range decoded.Predictions {
		out = append(out, p.toPrediction())
	}
	return out, nil
}
