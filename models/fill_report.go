package models

// FillOutcome is the result of one fill attempt.
type FillOutcome string

const (
	OutcomeFilled         FillOutcome = "filled"
	OutcomeSkippedLowConf FillOutcome = "skipped_low_confidence"
	OutcomeSkippedNoValue FillOutcome = "skipped_no_value"
	OutcomeFailed         FillOutcome = "failed"
)

// FillAttempt records the outcome for one field that was in scope for
// filling. ValueKind names the kind of data that was (or would have been)
// written, never the value itself, so reports stay free of candidate PII.
type FillAttempt struct {
	FieldLabel  string      `json:"field_label"`
	FieldType   FieldType   `json:"field_type"`
	Selector    string      `json:"selector"`
	Outcome     FillOutcome `json:"outcome"`
	ValueKind   string      `json:"value_kind,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
	ElapsedMS   int64       `json:"elapsed_ms"`
}

// FillReport is the terminal artifact of one fill job. Attempt order matches
// the order fields appear in the FormFieldMap, which matches DOM encounter
// order, so reports from repeated runs on an unchanged page line up.
//
// Screenshots holds at minimum one capture at session start and one at
// session end, plus one after every failed attempt.
type FillReport struct {
	Attempts        []FillAttempt `json:"attempts"`
	FieldsFilled    int           `json:"fields_filled"`
	FieldsAttempted int           `json:"fields_attempted"`
	Errors          []string      `json:"errors,omitempty"`
	Screenshots     [][]byte      `json:"-"`
	ScreenshotKeys  []string      `json:"screenshot_keys,omitempty"`
	Success         bool          `json:"success"`
	TotalElapsedMS  int64         `json:"total_elapsed_ms"`
}
