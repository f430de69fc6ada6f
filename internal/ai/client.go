// Package ai talks to a local OpenAI-compatible chat completions server.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/logreport-ai-go/internal/logging"
)

const (
	// DefaultPingTimeoutSeconds bounds the connectivity check
	DefaultPingTimeoutSeconds = 10

	pingSystemPrompt = "You are a connectivity check. Reply briefly."
	pingMessage      = "Respond with OK"
	pingTemperature  = 0.1
	pingMaxTokens    = 10
)

// analysisInstructions frames the combined log content in the user message
const analysisInstructions = `Please analyze the following log files and produce a report in markdown.

Identify errors, warnings, and unusual patterns, explain their likely causes, assess their impact, and recommend concrete next steps. If the logs show no problems, say so explicitly.

LOG CONTENT:

%s

End of log content. Provide your analysis now.`

// AnalyzeParams carries the settings used for one analysis request
type AnalyzeParams struct {
	Endpoint       string
	Port           int
	Path           string
	SystemPrompt   string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// URL returns the chat endpoint for these parameters
func (p AnalyzeParams) URL() string {
	return ComposeURL(p.Endpoint, p.Port, p.Path)
}

// ComposeURL builds "{endpoint}:{port}{path}" verbatim.
// Double slashes and a missing scheme are left as configured.
func ComposeURL(endpoint string, port int, path string) string {
	return endpoint + ":" + strconv.Itoa(port) + path
}

// Client sends chat completion requests. Each request is a single POST with no retries.
type Client struct {
	log *logging.SecureLogger
}

// NewClient creates a client using the default HTTP transport
func NewClient(log *logging.SecureLogger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{log: log}
}

// httpClient returns a client bounded by timeoutSeconds
func (c *Client) httpClient(timeoutSeconds int) *http.Client {
	return &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

// SendRequest POSTs payload to url and decodes the chat completion response.
func (c *Client) SendRequest(ctx context.Context, url string, payload []byte, timeoutSeconds int) (*ChatResponse, error) {
	start := time.Now()

	resp, err := doJSONPost[ChatResponse](ctx, c.httpClient(timeoutSeconds), url, payload)
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("url", url).
			Float64("duration_seconds", time.Since(start).Seconds()).
			Msg("LLM request failed")
		return nil, err
	}

	c.log.Debug().
		Str("url", url).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Float64("duration_seconds", time.Since(start).Seconds()).
		Msg("LLM request completed")

	return resp, nil
}

// TestConnection sends a tiny "Respond with OK" request.
// Any parseable response counts as success; its content is not checked.
func (c *Client) TestConnection(ctx context.Context, endpoint string, port int, path, model string, timeoutSeconds int) error {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultPingTimeoutSeconds
	}

	payload, err := BuildRequestPayload(pingSystemPrompt, pingMessage, model, pingTemperature, pingMaxTokens)
	if err != nil {
		return err
	}

	if _, err := c.SendRequest(ctx, ComposeURL(endpoint, port, path), payload, timeoutSeconds); err != nil {
		return err
	}
	return nil
}

// Analyze sends the log content for analysis and returns choices[0].message.content.
func (c *Client) Analyze(ctx context.Context, logContent string, params AnalyzeParams) (string, error) {
	payload, err := BuildRequestPayload(
		params.SystemPrompt,
		BuildUserMessage(logContent),
		params.Model,
		params.Temperature,
		params.MaxTokens,
	)
	if err != nil {
		return "", err
	}

	c.log.Info().
		Str("url", params.URL()).
		Str("model", params.Model).
		Int("payload_bytes", len(payload)).
		Int("timeout_seconds", params.TimeoutSeconds).
		Msg("Sending analysis request")

	resp, err := c.SendRequest(ctx, params.URL(), payload, params.TimeoutSeconds)
	if err != nil {
		return "", err
	}

	content, ok := resp.Content()
	if !ok {
		return "", fmt.Errorf("%w: response has no choices", ErrInvalidResponse)
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	return content, nil
}

// BuildUserMessage wraps log content in the fixed analysis instructions
func BuildUserMessage(logContent string) string {
	return fmt.Sprintf(analysisInstructions, logContent)
}
