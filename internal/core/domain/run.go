package domain

import (
	"fmt"
	"time"
)

// Stage identifies one step of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageMetadata   Stage = "metadata"
	StageSummary    Stage = "summary"
	StageSignatures Stage = "signatures"
	StagePropagate  Stage = "propagate"
	StageChunk      Stage = "chunk"
	StagePublish    Stage = "publish"
)

// AllStages lists every stage in execution order.
func AllStages() []Stage {
	return []Stage{
		StageMetadata,
		StageSummary,
		StageSignatures,
		StagePropagate,
		StageChunk,
		StagePublish,
	}
}

// ParseStage converts a name into a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range AllStages() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, name)
}

// IsEnrichment reports whether the stage writes to canonical pages
// through an AI call.
func (s Stage) IsEnrichment() bool {
	return s == StageMetadata || s == StageSummary || s == StageSignatures
}

// StageReport summarises one stage execution.
type StageReport struct {
	// Stage is the stage that ran.
	Stage Stage `json:"stage"`

	// Selected is how many items matched the stage predicate.
	Selected int `json:"selected"`

	// Processed is how many items were written.
	Processed int `json:"processed"`

	// Failed is how many items were left untouched after an error.
	Failed int `json:"failed"`

	// Skipped is how many items were excluded by design (e.g. page ceiling).
	Skipped int `json:"skipped"`

	// Duration is the wall-clock time of the stage.
	Duration time.Duration `json:"duration"`
}

// RunOptions selects what a pipeline run does.
type RunOptions struct {
	// Stages to run; empty runs every stage.
	Stages []Stage

	// Filter restricts which Documents are touched.
	Filter DocumentFilter
}

// Includes reports whether the options select the stage.
func (o RunOptions) Includes(s Stage) bool {
	if len(o.Stages) == 0 {
		return true
	}
	for _, st := range o.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// RunReport records one pipeline run.
type RunReport struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`

	// Filter is the folder filter the run used.
	Filter string `json:"filter,omitempty"`

	// Stages holds one report per executed stage.
	Stages []StageReport `json:"stages"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the run finished.
	EndedAt time.Time `json:"ended_at"`

	// Error is the fatal error that aborted the run, if any.
	Error string `json:"error,omitempty"`
}

// Stage returns the report for the given stage, if it ran.
func (r RunReport) Stage(s Stage) (StageReport, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageReport{}, false
}

// IngestReport summarises an ingest pass.
type IngestReport struct {
	// Created is how many new Documents were parsed and stored.
	Created int `json:"created"`

	// Existing is how many Documents were already stored.
	Existing int `json:"existing"`

	// Failed is how many files could not be parsed.
	Failed int `json:"failed"`

	// Pages is the total number of pages stored.
	Pages int `json:"pages"`
}
