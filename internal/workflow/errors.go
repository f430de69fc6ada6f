package workflow

import "errors"

// Abort reasons of the analyze and report pipeline
var (
	ErrLogsFolderMissing = errors.New("logs folder not found")
	ErrNoLogFiles        = errors.New("no log files found")
	ErrNoLogContent      = errors.New("log files produced no content")
	ErrConfigUnavailable = errors.New("configuration unavailable")
	ErrPromptUnavailable = errors.New("prompt template unavailable")
	ErrConnectionFailed  = errors.New("llm server unreachable")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrReportNotSaved    = errors.New("report could not be saved")
)
