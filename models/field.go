package models

import (
	"math"
	"time"
)

// FieldType is the closed set of semantic meanings a form element can be
// classified into.
type FieldType string

const (
	FieldTypeName         FieldType = "name"
	FieldTypeEmail        FieldType = "email"
	FieldTypePhone        FieldType = "phone"
	FieldTypeLocation     FieldType = "location"
	FieldTypeFileUpload   FieldType = "file_upload"
	FieldTypeSalary       FieldType = "salary"
	FieldTypeFreeText     FieldType = "free_text"
	FieldTypeDate         FieldType = "date"
	FieldTypeSelectOption FieldType = "select_option"
	FieldTypeUnknown      FieldType = "unknown"
)

// AllFieldTypes lists every valid field type, most specific first. The order
// doubles as the tie-break ranking when two types score nearly the same.
var AllFieldTypes = []FieldType{
	FieldTypeEmail,
	FieldTypePhone,
	FieldTypeDate,
	FieldTypeSalary,
	FieldTypeFileUpload,
	FieldTypeLocation,
	FieldTypeName,
	FieldTypeSelectOption,
	FieldTypeFreeText,
	FieldTypeUnknown,
}

// IsValid reports whether ft is one of the defined field types.
func (ft FieldType) IsValid() bool {
	for _, t := range AllFieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Specificity returns the tie-break rank for a field type. Lower is more
// specific: email beats free_text when their scores are within tolerance.
func (ft FieldType) Specificity() int {
	for i, t := range AllFieldTypes {
		if t == ft {
			return i
		}
	}
	return len(AllFieldTypes)
}

// InputKind is the coarse interaction category of a DOM element. It decides
// which fill action the executor uses, independent of the semantic FieldType.
type InputKind string

const (
	InputKindText     InputKind = "text"
	InputKindTextarea InputKind = "textarea"
	InputKindSelect   InputKind = "select"
	InputKindFile     InputKind = "file"
	InputKindCheckbox InputKind = "checkbox"
)

// BoundingBox is the on-screen rectangle of an element, used for overlap
// deduplication and for cropping the visual-fallback screenshot.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Overlaps reports whether two boxes overlap enough to be treated as the same
// widget. Composite inputs (masked phone fields built from several <input>s)
// share most of their footprint, so the test is intersection over the smaller
// box rather than plain intersection.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	ix := math.Min(b.X+b.Width, other.X+other.Width) - math.Max(b.X, other.X)
	iy := math.Min(b.Y+b.Height, other.Y+other.Height) - math.Max(b.Y, other.Y)
	if ix <= 0 || iy <= 0 {
		return false
	}
	smaller := math.Min(b.Area(), other.Area())
	if smaller <= 0 {
		return false
	}
	return (ix*iy)/smaller > 0.25
}

// ElementSignals is the bag of observable signals for one candidate element,
// captured fresh per detection run. Selector is a stable CSS path usable for
// later interaction within the same page session; it is not meaningful across
// sessions.
type ElementSignals struct {
	Selector        string      `json:"selector"`
	LabelText       string      `json:"label"`
	Placeholder     string      `json:"placeholder"`
	NameAttr        string      `json:"name"`
	IDAttr          string      `json:"id"`
	InputKind       InputKind   `json:"input_kind"`
	TypeAttr        string      `json:"type_attr"`
	SurroundingText string      `json:"surrounding_text"`
	Required        bool        `json:"required"`
	Visible         bool        `json:"visible"`
	Box             BoundingBox `json:"box"`
	Options         []string    `json:"options,omitempty"`
}

// DetectionMethod records which path produced a classification.
type DetectionMethod string

const (
	MethodHeuristic      DetectionMethod = "heuristic"
	MethodVisionFallback DetectionMethod = "vision_fallback"
	MethodHybridMerge    DetectionMethod = "hybrid_merge"
)

// FieldMatch pairs an element with its classified type and a calibrated
// confidence in [0,1]. Confidence 0.75 is the acceptance line regardless of
// which detection method produced the match.
type FieldMatch struct {
	Signals    ElementSignals  `json:"signals"`
	FieldType  FieldType       `json:"field_type"`
	Confidence float64         `json:"confidence"`
	Method     DetectionMethod `json:"detection_method"`
	// Primary marks the single file_upload match that receives the resume.
	// Other file inputs stay in the map for display but are never auto-filled.
	Primary bool `json:"primary,omitempty"`
}

// FormFieldMap is the ordered detection result for one page. Field order
// matches DOM encounter order. Invariants: no two matches reference the same
// element, and at most one file_upload match is primary.
type FormFieldMap struct {
	URL               string       `json:"url"`
	Fields            []FieldMatch `json:"fields"`
	OverallConfidence float64      `json:"overall_confidence"`
	DetectedAt        time.Time    `json:"detected_at"`
}

// Clone returns a deep copy. The autofill executor works on a copy so that
// fill-time mutation can never corrupt the detection record kept for
// analytics.
func (m FormFieldMap) Clone() FormFieldMap {
	out := m
	out.Fields = make([]FieldMatch, len(m.Fields))
	copy(out.Fields, m.Fields)
	for i := range out.Fields {
		if opts := m.Fields[i].Signals.Options; opts != nil {
			out.Fields[i].Signals.Options = append([]string(nil), opts...)
		}
	}
	return out
}
