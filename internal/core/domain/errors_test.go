package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allErrors() map[string]error {
	return map[string]error{
		"ErrNotFound":              ErrNotFound,
		"ErrAlreadyExists":         ErrAlreadyExists,
		"ErrInvalidInput":          ErrInvalidInput,
		"ErrUnsupportedType":       ErrUnsupportedType,
		"ErrInvalidConfig":         ErrInvalidConfig,
		"ErrStorageUnavailable":    ErrStorageUnavailable,
		"ErrExtractorUnavailable":  ErrExtractorUnavailable,
		"ErrSummariserUnavailable": ErrSummariserUnavailable,
		"ErrEmptyResponse":         ErrEmptyResponse,
		"ErrMalformedResponse":     ErrMalformedResponse,
		"ErrDocumentTooLarge":      ErrDocumentTooLarge,
		"ErrIndexUnavailable":      ErrIndexUnavailable,
		"ErrRunInProgress":         ErrRunInProgress,
	}
}

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	for name, err := range allErrors() {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, err)
			assert.NotEmpty(t, err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that no two errors match each other
func TestErrors_Uniqueness(t *testing.T) {
	errs := allErrors()
	messages := make(map[string]string, len(errs))
	for name, err := range errs {
		if other, ok := messages[err.Error()]; ok {
			t.Errorf("%s and %s share message %q", name, other, err.Error())
		}
		messages[err.Error()] = name

		for otherName, other := range errs {
			if otherName != name {
				assert.False(t, errors.Is(err, other), "%s matches %s", name, otherName)
			}
		}
	}
}

func TestErrors_ErrorMessages(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.Equal(t, "invalid configuration", ErrInvalidConfig.Error())
	assert.Equal(t, "document exceeds page ceiling", ErrDocumentTooLarge.Error())
	assert.Equal(t, "pipeline run in progress", ErrRunInProgress.Error())
}

func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("gemini: %w: %w", ErrMalformedResponse, errors.New("missing title"))

	assert.True(t, errors.Is(wrapped, ErrMalformedResponse))
	assert.False(t, errors.Is(wrapped, ErrEmptyResponse))
	assert.Contains(t, wrapped.Error(), "missing title")
}
