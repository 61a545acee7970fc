package domain

// DocumentStatus shows which derived fields of a Document are populated.
type DocumentStatus struct {
	DocumentKey

	// PageCount is the number of pages.
	PageCount int `json:"page_count"`

	// HasTitle through HasSummary report canonical page population.
	HasTitle     bool `json:"has_title"`
	HasPrintDate bool `json:"has_print_date"`
	HasLanguage  bool `json:"has_language"`
	HasSummary   bool `json:"has_summary"`

	// HasSignatures reports whether a non-empty validated list is stored.
	HasSignatures bool `json:"has_signatures"`

	// SignatureCount is the number of valid signatures.
	SignatureCount int `json:"signature_count"`

	// SignaturesChecked reports whether signature extraction has completed.
	SignaturesChecked bool `json:"signatures_checked"`

	// OverCeiling reports whether the Document is too large for direct
	// file extraction.
	OverCeiling bool `json:"over_ceiling"`

	// PagesInSync reports whether every page carries the canonical values.
	PagesInSync bool `json:"pages_in_sync"`

	// Chunks is the number of chunks currently stored for the Document.
	Chunks int `json:"chunks"`
}

// Missing lists the derived fields that are not populated.
func (s DocumentStatus) Missing() []string {
	var missing []string
	if !s.HasTitle {
		missing = append(missing, "title")
	}
	if !s.HasPrintDate {
		missing = append(missing, "printDate")
	}
	if !s.HasLanguage {
		missing = append(missing, "language")
	}
	if !s.HasSummary {
		missing = append(missing, "summary")
	}
	if !s.HasSignatures {
		missing = append(missing, "signatures")
	}
	return missing
}

// Complete reports whether enrichment has nothing left to retry.
// A Document with no signatures is complete once extraction has checked it.
func (s DocumentStatus) Complete() bool {
	sigsDone := s.HasSignatures || s.SignaturesChecked || s.OverCeiling
	return s.HasTitle && s.HasSummary && sigsDone && s.PagesInSync
}
