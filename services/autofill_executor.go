package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"formpilot/config"
	"formpilot/models"
)

// FillDriver is the slice of page actions the executor needs. PageSession
// implements it against a live browser; tests substitute fakes.
type FillDriver interface {
	FillText(selector, value string, timeout time.Duration) error
	SelectByLabel(selector, label string, timeout time.Duration) error
	SetFile(selector, path string, timeout time.Duration) error
	SetChecked(selector string, checked bool, timeout time.Duration) error
	Screenshot() ([]byte, error)
}

// AutofillExecutor drives fill actions against a live page. It is the only
// core component that mutates page state. One field's failure never aborts
// the remaining fields: a form that is 90% fillable should be 90% filled.
type AutofillExecutor struct {
	cfg config.AutomationConfig
}

func NewAutofillExecutor(cfg config.AutomationConfig) *AutofillExecutor {
	return &AutofillExecutor{cfg: cfg}
}

// Fill processes the field map in order against the profile. It always
// returns a report, even when the context expires midway: a partially
// completed job is telemetry, not a pure failure. Fields must be filled
// sequentially; concurrent DOM mutation on one page triggers client-side
// validation races.
func (e *AutofillExecutor) Fill(ctx context.Context, fieldMap models.FormFieldMap, profile *models.CandidateProfile, driver FillDriver) *models.FillReport {
	start := time.Now()
	// Work on a copy so the detection record stays pristine for analytics.
	fieldMap = fieldMap.Clone()

	report := &models.FillReport{}

	e.captureScreenshot(driver, report, "session start")

	for i := range fieldMap.Fields {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, "job budget exhausted before all fields were processed")
			break
		}
		match := fieldMap.Fields[i]
		if !e.inScope(match) {
			continue
		}
		attempt := e.fillOne(ctx, match, profile, driver)
		report.Attempts = append(report.Attempts, attempt)

		switch attempt.Outcome {
		case models.OutcomeFilled:
			report.FieldsFilled++
			report.FieldsAttempted++
		case models.OutcomeFailed:
			report.FieldsAttempted++
			report.Errors = append(report.Errors, fmt.Sprintf(
				"field %q (%s): %s", attempt.FieldLabel, attempt.FieldType, attempt.ErrorDetail))
			e.captureScreenshot(driver, report, "after failed attempt")
		}
	}

	e.captureScreenshot(driver, report, "session end")

	report.TotalElapsedMS = time.Since(start).Milliseconds()
	report.Success = report.FieldsFilled > 0 && len(report.Errors) == 0
	return report
}

// inScope decides whether a match gets a fill attempt at all: unknown
// classifications are excluded, and of the file inputs only the primary one
// receives the resume.
func (e *AutofillExecutor) inScope(match models.FieldMatch) bool {
	if match.FieldType == models.FieldTypeUnknown {
		return false
	}
	if match.FieldType == models.FieldTypeFileUpload && !match.Primary {
		return false
	}
	return true
}

func (e *AutofillExecutor) fillOne(ctx context.Context, match models.FieldMatch, profile *models.CandidateProfile, driver FillDriver) models.FillAttempt {
	start := time.Now()
	attempt := models.FillAttempt{
		FieldLabel: match.Signals.LabelText,
		FieldType:  match.FieldType,
		Selector:   match.Signals.Selector,
		ValueKind:  string(match.FieldType),
	}
	defer func() {
		attempt.ElapsedMS = time.Since(start).Milliseconds()
	}()

	value, resolved := e.resolveValue(match, profile)
	if !resolved {
		// Expected, not an error: e.g. a salary field with no stated
		// expectation.
		attempt.Outcome = models.OutcomeSkippedNoValue
		return attempt
	}

	if match.Confidence < e.cfg.FillThreshold {
		// Writing into a field the classifier is unsure about risks
		// corrupting the application.
		attempt.Outcome = models.OutcomeSkippedLowConf
		return attempt
	}

	if err := e.performAction(ctx, match, value, driver); err != nil {
		attempt.Outcome = models.OutcomeFailed
		attempt.ErrorDetail = err.Error()
		log.Printf("Fill failed for %q (%s): %v", match.Signals.LabelText, match.Signals.Selector, err)
		return attempt
	}

	attempt.Outcome = models.OutcomeFilled
	return attempt
}

func (e *AutofillExecutor) resolveValue(match models.FieldMatch, profile *models.CandidateProfile) (string, bool) {
	if match.FieldType == models.FieldTypeFileUpload {
		path := strings.TrimSpace(profile.ResumeFilePath)
		return path, path != ""
	}
	return profile.ValueFor(match.FieldType)
}

func (e *AutofillExecutor) performAction(ctx context.Context, match models.FieldMatch, value string, driver FillDriver) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}

	timeout := e.cfg.FieldTimeout
	switch match.Signals.InputKind {
	case models.InputKindText, models.InputKindTextarea:
		return driver.FillText(match.Signals.Selector, value, timeout)
	case models.InputKindFile:
		return driver.SetFile(match.Signals.Selector, value, timeout)
	case models.InputKindSelect:
		option, ok := matchOption(match.Signals.Options, value)
		if !ok {
			return fmt.Errorf("no option matching value kind %s", match.FieldType)
		}
		return driver.SelectByLabel(match.Signals.Selector, option, timeout)
	case models.InputKindCheckbox:
		checked, ok := parseCheckable(value)
		if !ok {
			return fmt.Errorf("value kind %s is not checkable", match.FieldType)
		}
		return driver.SetChecked(match.Signals.Selector, checked, timeout)
	default:
		return fmt.Errorf("unsupported input kind %q", match.Signals.InputKind)
	}
}

// matchOption resolves a profile value against a select's visible options:
// exact match first, then case-insensitive substring in either direction.
func matchOption(options []string, value string) (string, bool) {
	for _, opt := range options {
		if opt == value {
			return opt, true
		}
	}
	lower := strings.ToLower(value)
	for _, opt := range options {
		optLower := strings.ToLower(opt)
		if strings.Contains(optLower, lower) || strings.Contains(lower, optLower) {
			return opt, true
		}
	}
	return "", false
}

func parseCheckable(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "on", "1":
		return true, true
	case "no", "false", "off", "0":
		return false, true
	}
	return false, false
}

func (e *AutofillExecutor) captureScreenshot(driver FillDriver, report *models.FillReport, what string) {
	shot, err := driver.Screenshot()
	if err != nil {
		log.Printf("Could not capture %s screenshot: %v", what, err)
		return
	}
	report.Screenshots = append(report.Screenshots, shot)
}
