package ports

import "errors"

// Fatal to the run.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrTranscription     = errors.New("transcription failed")
	ErrOracle            = errors.New("highlight oracle failed")
)

// ErrClipExtraction marks a single clip that could not be cut. Callers skip the
// clip and keep going.
var ErrClipExtraction = errors.New("clip extraction failed")
