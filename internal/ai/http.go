package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/olegiv/logreport-ai-go/internal/errors"
)

// maxErrorBodyBytes bounds how much of a failed response body ends up in an error
const maxErrorBodyBytes = 512

// doJSONPost POSTs an already encoded JSON body and unmarshals the response.
// Transport failures and non-2xx statuses wrap ErrRequestFailed; undecodable or null bodies wrap ErrInvalidResponse.
func doJSONPost[T any](ctx context.Context, client *http.Client, url string, body []byte) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrRequestFailed, apperrors.SanitizeError(err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, apperrors.SanitizeError(err))
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrRequestFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: server returned status %d: %s",
			ErrRequestFailed, resp.StatusCode, apperrors.SanitizeString(truncate(string(respBody), maxErrorBodyBytes)))
	}

	var response *T
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if response == nil {
		return nil, fmt.Errorf("%w: null response body", ErrInvalidResponse)
	}

	return response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
