package wavespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*config.WaveSpeedConfig)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.WaveSpeedConfig{
		BaseURL:      server.URL,
		APIKey:       "ws-key",
		PollInterval: time.Millisecond,
		MaxWait:      5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeData(w http.ResponseWriter, p Prediction) {
	json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "success", "data": p})
}

func TestTextToImageSubmitsRequest(t *testing.T) {
	var got TextToImageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /google/nano-banana-pro/text-to-image", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ws-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeData(w, Prediction{ID: "job-1", Status: StatusCreated})
	})
	c := newTestClient(t, mux)

	pred, err := c.TextToImage(context.Background(), TextToImageRequest{
		AspectRatio:  "16:9",
		OutputFormat: "png",
		Prompt:       "a neon city",
		Resolution:   "1k",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", pred.ID)
	assert.Equal(t, "a neon city", got.Prompt)
	assert.Equal(t, "16:9", got.AspectRatio)
}

func TestTextToImageNonOK(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.TextToImage(context.Background(), TextToImageRequest{Prompt: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "401 Unauthorized", se.Error())
}

func TestWaitPollsUntilCompleted(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /predictions/job-1/result", func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		if n < 3 {
			writeData(w, Prediction{ID: "job-1", Status: StatusProcessing})
			return
		}
		writeData(w, Prediction{ID: "job-1", Status: StatusCompleted, Outputs: []string{"https://cdn.example/img.png"}})
	})
	c := newTestClient(t, mux)

	pred, err := c.Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, pred.Status)
	assert.Equal(t, []string{"https://cdn.example/img.png"}, pred.Outputs)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitReturnsFailedJob(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, Prediction{ID: "job-2", Status: StatusFailed, Error: "nsfw content"})
	}))

	pred, err := c.Wait(context.Background(), "job-2")
	require.ErrorIs(t, err, domain.ErrImageJobFailed)
	require.NotNil(t, pred)
	assert.Equal(t, StatusFailed, pred.Status)
	assert.Contains(t, err.Error(), "nsfw content")
}

func TestWaitStopsOnNonOK(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			writeData(w, Prediction{ID: "job-3", Status: StatusProcessing})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Wait(context.Background(), "job-3")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(2), polls.Load())
}

func TestWaitMaxWait(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, Prediction{ID: "job-4", Status: StatusProcessing})
	}), func(cfg *config.WaveSpeedConfig) {
		cfg.PollInterval = 10 * time.Millisecond
		cfg.MaxWait = 50 * time.Millisecond
	})

	_, err := c.Wait(context.Background(), "job-4")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrImageJobTimeout)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestWaitCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, Prediction{ID: "job-5", Status: StatusProcessing})
	}), func(cfg *config.WaveSpeedConfig) {
		cfg.PollInterval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := c.Wait(ctx, "job-5")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrImageJobTimeout))
}

func TestEditReturnsRawBody(t *testing.T) {
	var got EditRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /google/nano-banana-pro/edit", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"code":200,"data":{"id":"edit-1","status":"created"}}`)
	})
	c := newTestClient(t, mux)

	raw, err := c.Edit(context.Background(), EditRequest{
		Images:       []string{"https://cdn.example/in.png"},
		OutputFormat: "png",
		Prompt:       "add a hat",
		Resolution:   "2k",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":200,"data":{"id":"edit-1","status":"created"}}`, string(raw))
	assert.Equal(t, []string{"https://cdn.example/in.png"}, got.Images)
	assert.Equal(t, "2k", got.Resolution)
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), func(cfg *config.WaveSpeedConfig) {
		cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxFailures: 2, Timeout: time.Minute}
	})

	for i := 0; i < 2; i++ {
		_, err := c.Result(context.Background(), "job")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, domain.ErrProviderError)
	}

	_, err := c.Result(context.Background(), "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), calls.Load())
}

func TestHasKey(t *testing.T) {
	c := NewClient(config.WaveSpeedConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, c.HasKey())
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultPollInterval, c.pollInterval)
}
