package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no parser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidConfig indicates the configuration cannot be used.
	// A run aborts before touching any Document.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageUnavailable indicates the document store cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Extraction Errors.

	// ErrExtractorUnavailable indicates no extraction service is configured.
	// Metadata and signature stages are disabled.
	ErrExtractorUnavailable = errors.New("extraction service unavailable")

	// ErrSummariserUnavailable indicates no summarisation service is configured.
	ErrSummariserUnavailable = errors.New("summarisation service unavailable")

	// ErrEmptyResponse indicates an AI call returned no usable payload.
	// The affected field stays null and is retried on the next run.
	ErrEmptyResponse = errors.New("empty response")

	// ErrMalformedResponse indicates an AI call returned data that does
	// not match the requested schema.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrDocumentTooLarge indicates a Document exceeds the page ceiling
	// for direct file extraction.
	ErrDocumentTooLarge = errors.New("document exceeds page ceiling")

	// ErrIndexUnavailable indicates the search index is not configured.
	ErrIndexUnavailable = errors.New("search index unavailable")

	// ErrRunInProgress indicates a pipeline run is already active.
	ErrRunInProgress = errors.New("pipeline run in progress")
)
