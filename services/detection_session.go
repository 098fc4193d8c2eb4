package services

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"formpilot/models"
)

// DetectionSession orchestrates one extraction-plus-classification pass over
// a loaded page and assembles the FormFieldMap.
type DetectionSession struct {
	extractor  *SignalExtractor
	classifier *FieldClassifier
}

func NewDetectionSession(extractor *SignalExtractor, classifier *FieldClassifier) *DetectionSession {
	return &DetectionSession{extractor: extractor, classifier: classifier}
}

// Detect classifies every visible interactive element on the page. Elements
// are independent, so classification fans out concurrently; the result keeps
// DOM encounter order regardless of completion order. A page with no
// eligible elements yields an empty map with zero confidence, which is a
// valid "no form present" answer rather than an error.
func (d *DetectionSession) Detect(ctx context.Context, session *PageSession, method string) (models.FormFieldMap, error) {
	signals, err := d.extractor.Extract(session)
	if err != nil {
		return models.FormFieldMap{}, err
	}

	log.Printf("Extracted %d candidate elements (method=%s)", len(signals), method)

	matches := make([]models.FieldMatch, len(signals))
	g, gctx := errgroup.WithContext(ctx)
	for i := range signals {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch method {
			case "heuristic":
				matches[i] = d.classifier.ClassifyHeuristicOnly(signals[i])
			default:
				matches[i] = d.classifier.Classify(gctx, signals[i], session.CropElement)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.FormFieldMap{}, mapCtxErr(err)
	}

	return assembleFieldMap(matches), nil
}

// assembleFieldMap applies the map invariants: overlapping elements are
// deduplicated in favor of the higher confidence, at most one file_upload is
// primary, and overall confidence is the mean over accepted matches.
func assembleFieldMap(matches []models.FieldMatch) models.FormFieldMap {
	fields := make([]models.FieldMatch, len(matches))
	copy(fields, matches)

	// Composite widgets (masked phone inputs split across several elements)
	// produce overlapping boxes; double-filling them is unsafe. Keep the
	// higher-confidence match, demote the rest to unknown.
	for i := range fields {
		if fields[i].FieldType == models.FieldTypeUnknown {
			continue
		}
		for j := i + 1; j < len(fields); j++ {
			if fields[j].FieldType == models.FieldTypeUnknown {
				continue
			}
			if !fields[i].Signals.Box.Overlaps(fields[j].Signals.Box) {
				continue
			}
			if fields[j].Confidence > fields[i].Confidence {
				demote(&fields[i])
			} else {
				demote(&fields[j])
			}
		}
	}

	// Only the highest-confidence file input is trusted with the resume;
	// uploading the CV into unrelated file fields is unsafe.
	primary := -1
	for i := range fields {
		if fields[i].FieldType != models.FieldTypeFileUpload {
			continue
		}
		if primary == -1 || fields[i].Confidence > fields[primary].Confidence {
			primary = i
		}
	}
	if primary >= 0 {
		fields[primary].Primary = true
	}

	var sum float64
	var accepted int
	for i := range fields {
		if fields[i].FieldType == models.FieldTypeUnknown {
			continue
		}
		sum += fields[i].Confidence
		accepted++
	}
	overall := 0.0
	if accepted > 0 {
		overall = sum / float64(accepted)
	}

	return models.FormFieldMap{
		Fields:            fields,
		OverallConfidence: overall,
		DetectedAt:        time.Now().UTC(),
	}
}

func demote(m *models.FieldMatch) {
	m.FieldType = models.FieldTypeUnknown
	m.Primary = false
}
