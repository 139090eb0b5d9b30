// Package wavespeed is a small client for the WaveSpeed image generation API:
// job submission, single result lookups and polling until a job settles.
package wavespeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
	"content-crew/internal/infra/tracer"
)

const (
	defaultBaseURL      = "https://api.wavespeed.ai/api/v3"
	defaultModel        = "google/nano-banana-pro"
	defaultPollInterval = 100 * time.Millisecond
	defaultMaxWait      = 5 * time.Minute
	defaultTimeout      = 60 * time.Second
	maxResponseBody     = 4 * 1024 * 1024
)

// Job statuses reported by the predictions endpoint.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TextToImageRequest is the body of a text-to-image submission.
type TextToImageRequest struct {
	AspectRatio        string `json:"aspect_ratio"`
	EnableBase64Output bool   `json:"enable_base64_output"`
	EnableSyncMode     bool   `json:"enable_sync_mode"`
	OutputFormat       string `json:"output_format"`
	Prompt             string `json:"prompt"`
	Resolution         string `json:"resolution"`
}

// EditRequest is the body of an image edit submission.
type EditRequest struct {
	EnableBase64Output bool     `json:"enable_base64_output"`
	EnableSyncMode     bool     `json:"enable_sync_mode"`
	Images             []string `json:"images"`
	OutputFormat       string   `json:"output_format"`
	Prompt             string   `json:"prompt"`
	Resolution         string   `json:"resolution"`
}

// Prediction is a WaveSpeed job as reported under the "data" key.
type Prediction struct {
	ID      string   `json:"id"`
	Model   string   `json:"model,omitempty"`
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
	Error   string   `json:"error,omitempty"`
}

// Settled reports whether the job reached a terminal status.
func (p *Prediction) Settled() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

type envelope struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    Prediction `json:"data"`
}

// StatusError is returned for non-OK HTTP responses. Its message has the
// "<code> <status text>" form the tools report back to the model.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets server-side failures count as provider errors.
func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests {
		return domain.ErrProviderError
	}
	return nil
}

// Client talks to the WaveSpeed REST API.
type Client struct {
	baseURL      string
	model        string
	apiKey       string
	pollInterval time.Duration
	maxWait      time.Duration
	http         *http.Client
	breaker      *gobreaker.CircuitBreaker[*apiResponse]
	logger       *slog.Logger
}

type apiResponse struct {
	status int
	body   []byte
}

// NewClient builds a client from cfg. Zero-valued fields fall back to the
// public API defaults.
func NewClient(cfg config.WaveSpeedConfig, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(orString(cfg.BaseURL, defaultBaseURL), "/"),
		model:        strings.Trim(orString(cfg.Model, defaultModel), "/"),
		apiKey:       cfg.APIKey,
		pollInterval: orDuration(cfg.PollInterval, defaultPollInterval),
		maxWait:      orDuration(cfg.MaxWait, defaultMaxWait),
		http:         &http.Client{Timeout: orDuration(cfg.RequestTimeout, defaultTimeout)},
		logger:       logger,
	}

	if cfg.CircuitBreaker.Enabled {
		maxFailures := cfg.CircuitBreaker.MaxFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
			Name:        "wavespeed",
			MaxRequests: 1,
			Interval:    cfg.CircuitBreaker.Interval,
			Timeout:     orDuration(cfg.CircuitBreaker.Timeout, 30*time.Second),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}
	return c
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// TextToImage submits a text-to-image job and returns the created prediction.
func (c *Client) TextToImage(ctx context.Context, req TextToImageRequest) (*Prediction, error) {
	ctx, span := tracer.StartSpan(ctx, "wavespeed.text_to_image",
		trace.WithAttributes(tracer.StringAttr("wavespeed.model", c.model)),
	)
	defer span.End()

	body, err := c.post(ctx, "/"+c.model+"/text-to-image", req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if env.Data.ID == "" {
		err := fmt.Errorf("submission returned no job id")
		tracer.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(tracer.StringAttr("wavespeed.job_id", env.Data.ID))
	tracer.SetOK(span)
	c.logger.Debug("wavespeed job submitted", "id", env.Data.ID, "status", env.Data.Status)
	return &env.Data, nil
}

// Edit submits an image edit job and returns the raw API response body.
func (c *Client) Edit(ctx context.Context, req EditRequest) (json.RawMessage, error) {
	ctx, span := tracer.StartSpan(ctx, "wavespeed.edit",
		trace.WithAttributes(tracer.StringAttr("wavespeed.model", c.model)),
	)
	defer span.End()

	body, err := c.post(ctx, "/"+c.model+"/edit", req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if !json.Valid(body) {
		err := fmt.Errorf("edit response is not JSON")
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return json.RawMessage(body), nil
}

// Result fetches the current state of a job.
func (c *Client) Result(ctx context.Context, id string) (*Prediction, error) {
	resp, err := c.do(ctx, http.MethodGet, "/predictions/"+id+"/result", nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.status, Body: string(resp.body)}
	}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if env.Data.ID == "" {
		env.Data.ID = id
	}
	return &env.Data, nil
}

// Wait polls the result endpoint at the configured interval until the job
// completes or fails, a lookup returns a non-OK response, ctx is cancelled
// or the maximum wait elapses. A failed job is returned together with
// domain.ErrImageJobFailed.
func (c *Client) Wait(ctx context.Context, id string) (*Prediction, error) {
	ctx, span := tracer.StartSpan(ctx, "wavespeed.wait",
		trace.WithAttributes(tracer.StringAttr("wavespeed.job_id", id)),
	)
	defer span.End()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	polls := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			err = c.waitErr(parent, id, err)
			tracer.RecordError(span, err)
			return nil, err
		}

		pred, err := c.Result(ctx, id)
		polls++
		if err != nil {
			if ctx.Err() != nil {
				err = c.waitErr(parent, id, err)
			}
			tracer.RecordError(span, err)
			return nil, err
		}

		if pred.Settled() {
			span.SetAttributes(
				tracer.StringAttr("wavespeed.status", pred.Status),
				tracer.IntAttr("wavespeed.polls", polls),
			)
			if pred.Status == StatusFailed {
				err := fmt.Errorf("%w: %s", domain.ErrImageJobFailed, pred.Error)
				tracer.RecordError(span, err)
				return pred, err
			}
			tracer.SetOK(span)
			c.logger.Debug("wavespeed job completed", "id", id, "polls", polls, "outputs", len(pred.Outputs))
			return pred, nil
		}
	}
}

// waitErr tells a max-wait expiry apart from cancellation by the caller.
// The limiter gives up early when the next tick would pass the deadline.
func (c *Client) waitErr(parent context.Context, id string, err error) error {
	if parent.Err() == nil {
		return domain.NewSubSystemError("wavespeed", "Client.Wait", domain.ErrImageJobTimeout,
			fmt.Sprintf("job %s not settled after %s", id, c.maxWait))
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.status, Body: string(resp.body)}
	}
	return resp.body, nil
}

// do performs one request through the circuit breaker, when enabled.
// Only transport failures and server-side statuses count against it.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*apiResponse, error) {
	call := func() (*apiResponse, error) {
		resp, err := c.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if resp.status >= 500 {
			return resp, &StatusError{StatusCode: resp.status, Body: string(resp.body)}
		}
		return resp, nil
	}

	if c.breaker == nil {
		resp, err := call()
		if resp != nil && err != nil {
			return resp, nil
		}
		return resp, err
	}

	var last *apiResponse
	_, err := c.breaker.Execute(func() (*apiResponse, error) {
		resp, err := call()
		last = resp
		return resp, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("wavespeed circuit open: %w: %w", domain.ErrProviderError, err)
		}
		if last != nil {
			return last, nil
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wavespeed request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &apiResponse{status: resp.StatusCode, body: data}, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
