package ai

import "errors"

var (
	ErrRequestFailed   = errors.New("llm request failed")
	ErrInvalidResponse = errors.New("llm server returned invalid response")
	ErrEmptyResponse   = errors.New("llm server returned empty analysis")
)
