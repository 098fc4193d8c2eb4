package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"

	"formpilot/config"
	"formpilot/models"
)

// VisionClient is the opaque visual classification capability: given a
// cropped element image and its surrounding text, return a field type guess
// with a raw confidence. Implementations call out to a local or remote model
// server; the classifier does not care which.
type VisionClient interface {
	ClassifyField(ctx context.Context, image []byte, contextText string) (models.FieldType, float64, error)
}

// CropFunc captures a cropped screenshot of the element behind a selector.
// The detection session binds this to the live page; tests bind it to fakes.
type CropFunc func(selector string) ([]byte, error)

// FieldClassifier maps a signal bag to a (FieldType, confidence) pair.
// Stage 1 scores weighted keyword/pattern sets per type; stage 2 escalates
// ambiguous elements to the vision client.
type FieldClassifier struct {
	cfg    config.AutomationConfig
	vision VisionClient
}

func NewFieldClassifier(cfg config.AutomationConfig, vision VisionClient) *FieldClassifier {
	return &FieldClassifier{cfg: cfg, vision: vision}
}

// Weights applied to a pattern hit depending on which signal it matched.
// Ordering mirrors label-resolution reliability: an explicit label is worth
// more than a name attribute, which is worth more than loose nearby text.
const (
	weightLabel       = 0.70
	weightPlaceholder = 0.62
	weightNameAttr    = 0.62
	weightIDAttr      = 0.62
	weightSurrounding = 0.30
	weightNativeType  = 0.95
	weightKindHint    = 0.50
)

type typeRule struct {
	fieldType models.FieldType
	pattern   *regexp.Regexp
	// exclude vetoes the rule when it matches the same signal, e.g.
	// "username" must not count toward name.
	exclude *regexp.Regexp
}

var typeRules = []typeRule{
	{models.FieldTypeEmail, regexp.MustCompile(`(?i)e-?mail`), nil},
	{models.FieldTypePhone, regexp.MustCompile(`(?i)phone|mobile|telephone|\btel\b`), nil},
	{models.FieldTypeName, regexp.MustCompile(`(?i)\bname\b|\bsurname\b`), regexp.MustCompile(`(?i)user\s*_?name|login|company\s*name`)},
	{models.FieldTypeLocation, regexp.MustCompile(`(?i)\bcity\b|location|address|country|\bstate\b|\bzip\b|postal`), regexp.MustCompile(`(?i)e-?mail address`)},
	{models.FieldTypeFileUpload, regexp.MustCompile(`(?i)resume|\bcv\b|cover\s*letter|upload|attach`), nil},
	{models.FieldTypeSalary, regexp.MustCompile(`(?i)salary|compensation|\bpay\b|\brate\b|remuneration`), nil},
	{models.FieldTypeDate, regexp.MustCompile(`(?i)\bdate\b|availab|start\s*date|notice\s*period`), regexp.MustCompile(`(?i)up\s*to\s*date|candidate`)},
	{models.FieldTypeFreeText, regexp.MustCompile(`(?i)summary|about|why|describe|message|comment|question|additional|motivation`), nil},
}

// nativeTypes are browser-native input types whose meaning is near-certain
// regardless of labeling.
var nativeTypes = map[string]models.FieldType{
	"email": models.FieldTypeEmail,
	"tel":   models.FieldTypePhone,
	"file":  models.FieldTypeFileUpload,
	"date":  models.FieldTypeDate,
}

// Classify runs stage 1 heuristics and, when no type clears the heuristic
// threshold, escalates to the vision fallback. The returned confidence is
// always calibrated so that 0.75 is the acceptance line for downstream
// consumers, whichever path produced it.
func (c *FieldClassifier) Classify(ctx context.Context, signals models.ElementSignals, crop CropFunc) models.FieldMatch {
	bestType, bestScore := c.scoreHeuristics(signals)

	if bestScore >= c.cfg.HeuristicThreshold {
		return models.FieldMatch{
			Signals:    signals,
			FieldType:  bestType,
			Confidence: calibrate(bestScore, c.cfg.HeuristicThreshold),
			Method:     models.MethodHeuristic,
		}
	}

	visionType, visionScore, err := c.classifyVision(ctx, signals, crop)
	if err != nil {
		log.Printf("Vision fallback unavailable for %s: %v", signals.Selector, err)
		return c.unknownMatch(signals, bestScore)
	}

	if visionScore >= c.cfg.VisionThreshold {
		match := models.FieldMatch{
			Signals:    signals,
			FieldType:  visionType,
			Confidence: calibrate(visionScore, c.cfg.VisionThreshold),
			Method:     models.MethodVisionFallback,
		}
		// When both paths independently land on the same type the combined
		// evidence is stronger than either alone.
		if visionType == bestType && bestType != models.FieldTypeUnknown {
			match.Method = models.MethodHybridMerge
			match.Confidence = math.Max(match.Confidence, calibrate(bestScore, c.cfg.HeuristicThreshold))
		}
		return match
	}

	// Neither path cleared its bar; keep the best score on record so the
	// caller can see how close it came.
	if calibrate(visionScore, c.cfg.VisionThreshold) > calibrate(bestScore, c.cfg.HeuristicThreshold) {
		return models.FieldMatch{
			Signals:    signals,
			FieldType:  models.FieldTypeUnknown,
			Confidence: calibrate(visionScore, c.cfg.VisionThreshold),
			Method:     models.MethodVisionFallback,
		}
	}
	return c.unknownMatch(signals, bestScore)
}

// ClassifyHeuristicOnly runs stage 1 without any fallback escalation.
func (c *FieldClassifier) ClassifyHeuristicOnly(signals models.ElementSignals) models.FieldMatch {
	bestType, bestScore := c.scoreHeuristics(signals)
	if bestScore >= c.cfg.HeuristicThreshold {
		return models.FieldMatch{
			Signals:    signals,
			FieldType:  bestType,
			Confidence: calibrate(bestScore, c.cfg.HeuristicThreshold),
			Method:     models.MethodHeuristic,
		}
	}
	return c.unknownMatch(signals, bestScore)
}

func (c *FieldClassifier) unknownMatch(signals models.ElementSignals, bestScore float64) models.FieldMatch {
	return models.FieldMatch{
		Signals:    signals,
		FieldType:  models.FieldTypeUnknown,
		Confidence: calibrate(bestScore, c.cfg.HeuristicThreshold),
		Method:     models.MethodHeuristic,
	}
}

// scoreHeuristics computes the stage 1 score for every field type and
// returns the winner after tie-breaking.
func (c *FieldClassifier) scoreHeuristics(signals models.ElementSignals) (models.FieldType, float64) {
	scores := make(map[models.FieldType]float64)

	if native, ok := nativeTypes[signals.TypeAttr]; ok {
		scores[native] += weightNativeType
	}
	switch signals.InputKind {
	case models.InputKindFile:
		if signals.TypeAttr != "file" {
			scores[models.FieldTypeFileUpload] += weightNativeType
		}
	case models.InputKindTextarea:
		scores[models.FieldTypeFreeText] += weightKindHint
	case models.InputKindSelect:
		scores[models.FieldTypeSelectOption] += weightKindHint
	}

	weighted := []struct {
		text   string
		weight float64
	}{
		{signals.LabelText, weightLabel},
		{signals.Placeholder, weightPlaceholder},
		{signals.NameAttr, weightNameAttr},
		{signals.IDAttr, weightIDAttr},
		{signals.SurroundingText, weightSurrounding},
	}

	for _, rule := range typeRules {
		for _, w := range weighted {
			if w.text == "" {
				continue
			}
			if rule.exclude != nil && rule.exclude.MatchString(w.text) {
				continue
			}
			if rule.pattern.MatchString(w.text) {
				scores[rule.fieldType] += w.weight
			}
		}
	}

	// AllFieldTypes is ordered most specific first, so scanning it in order
	// and only replacing the leader on a clear margin implements the
	// tie-break policy: scores within tolerance resolve to the more specific
	// type, keeping classification deterministic across runs.
	best := models.FieldTypeUnknown
	bestScore := 0.0
	for _, ft := range models.AllFieldTypes {
		score := math.Min(scores[ft], 1.0)
		if score == 0 {
			continue
		}
		if bestScore == 0 || score > bestScore+tieTolerance {
			best, bestScore = ft, score
		}
	}
	return best, bestScore
}

const tieTolerance = 0.05

func (c *FieldClassifier) classifyVision(ctx context.Context, signals models.ElementSignals, crop CropFunc) (models.FieldType, float64, error) {
	if c.vision == nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("no vision client configured")
	}
	if crop == nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("no crop capability for this run")
	}
	image, err := crop(signals.Selector)
	if err != nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("could not crop element: %w", err)
	}
	contextText := strings.TrimSpace(strings.Join([]string{
		signals.LabelText, signals.Placeholder, signals.SurroundingText,
	}, " | "))
	return c.vision.ClassifyField(ctx, image, contextText)
}

// calibrate linearly remaps a raw path score onto the shared confidence
// scale: the path's acceptance threshold lands on 0.75, the extremes stay
// pinned at 0 and 1. This keeps "confidence >= 0.75" meaning the same thing
// no matter which detection path produced the match.
func calibrate(raw, threshold float64) float64 {
	if threshold <= 0 || threshold >= 1 {
		return clamp01(raw)
	}
	raw = clamp01(raw)
	if raw <= threshold {
		return raw / threshold * 0.75
	}
	return 0.75 + (raw-threshold)/(1-threshold)*0.25
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
