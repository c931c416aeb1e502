package domain

import "errors"

// Error taxonomy for one ingestion batch. Per-feed and per-candidate
// conditions are recovered locally by the orchestrator; only
// ErrBackendUnavailable and ErrStoreUnavailable escalate a whole run.
var (
	ErrFeedUnavailable    = errors.New("feed unavailable")
	ErrDuplicateTitle     = errors.New("duplicate original title")
	ErrEnrichmentFailed   = errors.New("enrichment failed")
	ErrImageGeneration    = errors.New("image generation failed")
	ErrBackendUnavailable = errors.New("text backend unavailable")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrAlreadyRunning     = errors.New("ingestion already running")
)
