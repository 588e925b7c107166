// Package taskqueue is the queue provider adapter: submit a generation
// job, poll the task endpoint until it reaches a terminal state, then
// normalize whichever result shape the deployment happens to return.
package taskqueue

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

	"video-cover-maker/internal/cover"
)

const defaultModel = "nano-banana"

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// PollInterval defaults to 2s, MaxPollAttempts to 60: a 2-minute
	// ceiling per task.
	PollInterval    time.Duration
	MaxPollAttempts int

	// ImageProxyURL, when set, is prefixed to remote result URLs that
	// could not be delivered as base64. Empty disables the rewrite and
	// the raw URL is returned instead.
	ImageProxyURL string
}

type Client struct {
	baseURL         string
	model           string
	httpClient      *http.Client
	logger          *slog.Logger
	pollInterval    time.Duration
	maxPollAttempts int
	imageProxyURL   string
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	maxPollAttempts := opts.MaxPollAttempts
	if maxPollAttempts <= 0 {
		maxPollAttempts = 60
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:         baseURL,
		model:           model,
		httpClient:      opts.HTTPClient,
		logger:          logger,
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
		imageProxyURL:   strings.TrimSpace(opts.ImageProxyURL),
	}
}

type submitProperties struct {
	AspectRatio  string `json:"aspect_ratio"`
	ImageSize    string `json:"image_size"`
	HideFileData bool   `json:"hide_file_data"`
}

type submitRequest struct {
	Model          string           `json:"model"`
	Prompt         string           `json:"prompt"`
	N              int              `json:"n"`
	Size           string           `json:"size"`
	ResponseFormat string           `json:"response_format"`
	AspectRatio    string           `json:"aspect_ratio"`
	ImageSize      string           `json:"image_size"`
	Image          string           `json:"image,omitempty"`
	HideFileData   bool             `json:"hide_file_data"`
	Properties     submitProperties `json:"properties"`
}

type submitResponse struct {
	TaskID string          `json:"task_id"`
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type taskResponse struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *taskError      `json:"error"`
}

type taskError struct {
	Message string `json:"message"`
}

// Generate submits the job and polls until terminal. Some deployments
// answer the submit with the finished result already attached; those
// skip the poll loop entirely.
func (c *Client) Generate(ctx context.Context, job cover.Job) (string, error) {
	if c.httpClient == nil {
		return "", errors.New("http client is nil")
	}

	sub, err := c.submit(ctx, job)
	if err != nil {
		return "", err
	}

	taskID := strings.TrimSpace(sub.TaskID)
	if taskID == "" {
		taskID = strings.TrimSpace(sub.ID)
	}
	if taskID == "" {
		if hasResult(sub.Data) {
			return c.normalize(sub.Data)
		}
		return "", cover.E(cover.KindNoTaskID, "submit response carried no task id")
	}

	c.logger.Debug("task submitted", "task_id", taskID, "ratio", job.AspectRatio)

	raw, err := c.poll(ctx, taskID, job.Secret)
	if err != nil {
		return "", err
	}
	return c.normalize(raw)
}

func (c *Client) submit(ctx context.Context, job cover.Job) (submitResponse, error) {
	width, height := cover.SizeFor(job.AspectRatio)
	size := fmt.Sprintf("%dx%d", width, height)

	imageSize := strings.TrimSpace(job.Resolution)
	if imageSize == "" {
		imageSize = size
	}

	payload := submitRequest{
		Model: c.model,
		// trailing hint token; some deployments only honor the ratio
		// when it rides on the prompt itself
		Prompt:         job.Prompt + "\n--ar " + job.AspectRatio,
		N:              1,
		Size:           size,
		ResponseFormat: "b64_json",
		AspectRatio:    job.AspectRatio,
		ImageSize:      imageSize,
		Image:          job.ImageBase64,
		HideFileData:   true,
		Properties: submitProperties{
			AspectRatio:  job.AspectRatio,
			ImageSize:    imageSize,
			HideFileData: true,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return submitResponse{}, fmt.Errorf("marshal submit request: %w", err)
	}

	url := c.baseURL + "/v1/images/generations?async=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return submitResponse{}, fmt.Errorf("create submit request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+job.Secret)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return submitResponse{}, fmt.Errorf("submit request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return submitResponse{}, fmt.Errorf("read submit response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return submitResponse{}, cover.E(cover.KindSubmit, "task submit rejected").
			WithStatus(httpResp.StatusCode).
			WithDetail(bodySnippet(rawBody))
	}

	var decoded submitResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return submitResponse{}, fmt.Errorf("decode submit response: %w", err)
	}
	return decoded, nil
}

// poll fetches the task every pollInterval until it is terminal.
// Transient fetch failures are logged and skipped; they burn an attempt
// but never kill the task.
func (c *Client) poll(ctx context.Context, taskID, secret string) (json.RawMessage, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		if err := waitCtx(ctx, c.pollInterval); err != nil {
			return nil, err
		}

		resp, err := c.fetchTask(ctx, taskID, secret)
		if err != nil {
			c.logger.Warn("poll attempt failed", "task_id", taskID, "attempt", attempt, "err", err)
			continue
		}

		status := strings.ToUpper(strings.TrimSpace(resp.Status))
		switch {
		// a structurally present result counts as success no matter
		// what the status field claims
		case status == "SUCCESS" || hasResult(resp.Data):
			return resp.Data, nil
		case status == "FAILED" || status == "FAILURE":
			return nil, cover.E(cover.KindTaskFailed, "generation task failed").
				WithDetail(taskFailureDetail(resp))
		}
	}

	return nil, cover.E(cover.KindTaskTimeout, "task %s not finished after %d polls", taskID, c.maxPollAttempts)
}

func (c *Client) fetchTask(ctx context.Context, taskID, secret string) (taskResponse, error) {
	url := c.baseURL + "/v1/images/tasks/" + taskID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return taskResponse{}, fmt.Errorf("create poll request: %w", err)
	}
	httpReq.Header.Set("authorization", "Bearer "+secret)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return taskResponse{}, fmt.Errorf("poll request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return taskResponse{}, fmt.Errorf("read poll response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return taskResponse{}, fmt.Errorf("poll status %d: %s", httpResp.StatusCode, bodySnippet(rawBody))
	}

	var decoded taskResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return taskResponse{}, fmt.Errorf("decode poll response: %w", err)
	}
	return decoded, nil
}

func taskFailureDetail(resp taskResponse) string {
	if resp.Error != nil && strings.TrimSpace(resp.Error.Message) != "" {
		return resp.Error.Message
	}
	if strings.TrimSpace(resp.Message) != "" {
		return resp.Message
	}
	return "no error detail from provider"
}

// hasResult reports whether a result payload is structurally present.
func hasResult(raw json.RawMessage) bool {
	trimmed := string(bytes.TrimSpace(raw))
	switch trimmed {
	case "", "null", "{}", `""`, "[]":
		return false
	}
	return true
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
