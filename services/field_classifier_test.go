package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/config"
	"formpilot/models"
)

func testAutomationConfig() config.AutomationConfig {
	return config.AutomationConfig{
		HeuristicThreshold: 0.6,
		VisionThreshold:    0.4,
		FillThreshold:      0.75,
	}
}

// fakeVision returns a fixed answer, or an error when err is set.
type fakeVision struct {
	fieldType  models.FieldType
	confidence float64
	err        error
	calls      int
}

func (f *fakeVision) ClassifyField(ctx context.Context, image []byte, contextText string) (models.FieldType, float64, error) {
	f.calls++
	if f.err != nil {
		return models.FieldTypeUnknown, 0, f.err
	}
	return f.fieldType, f.confidence, nil
}

func noCrop(selector string) ([]byte, error) {
	return []byte("png"), nil
}

func TestClassifyHeuristic(t *testing.T) {
	c := NewFieldClassifier(testAutomationConfig(), nil)

	tests := []struct {
		name     string
		signals  models.ElementSignals
		expected models.FieldType
	}{
		{
			name: "native email input",
			signals: models.ElementSignals{
				Selector: "#email", InputKind: models.InputKindText, TypeAttr: "email",
			},
			expected: models.FieldTypeEmail,
		},
		{
			name: "labeled email field",
			signals: models.ElementSignals{
				Selector: "#e", InputKind: models.InputKindText, TypeAttr: "text",
				LabelText: "E-mail address *",
			},
			expected: models.FieldTypeEmail,
		},
		{
			name: "phone by name and id",
			signals: models.ElementSignals{
				Selector: "#p", InputKind: models.InputKindText, TypeAttr: "text",
				NameAttr: "phone_number", IDAttr: "phone",
			},
			expected: models.FieldTypePhone,
		},
		{
			name: "full name label",
			signals: models.ElementSignals{
				Selector: "#n", InputKind: models.InputKindText, TypeAttr: "text",
				LabelText: "Full name",
			},
			expected: models.FieldTypeName,
		},
		{
			name: "username is not a name",
			signals: models.ElementSignals{
				Selector: "#u", InputKind: models.InputKindText, TypeAttr: "text",
				LabelText: "Username",
			},
			expected: models.FieldTypeUnknown,
		},
		{
			name: "resume file input",
			signals: models.ElementSignals{
				Selector: "#cv", InputKind: models.InputKindFile, TypeAttr: "file",
				LabelText: "Upload your resume",
			},
			expected: models.FieldTypeFileUpload,
		},
		{
			name: "motivation textarea",
			signals: models.ElementSignals{
				Selector: "#why", InputKind: models.InputKindTextarea, TypeAttr: "",
				LabelText: "Why do you want to work here?",
			},
			expected: models.FieldTypeFreeText,
		},
		{
			name: "city field",
			signals: models.ElementSignals{
				Selector: "#c", InputKind: models.InputKindText, TypeAttr: "text",
				LabelText: "City", NameAttr: "city",
			},
			expected: models.FieldTypeLocation,
		},
		{
			name: "unlabeled text input stays unknown",
			signals: models.ElementSignals{
				Selector: "#x", InputKind: models.InputKindText, TypeAttr: "text",
			},
			expected: models.FieldTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := c.ClassifyHeuristicOnly(tt.signals)
			assert.Equal(t, tt.expected, match.FieldType)
			assert.Equal(t, models.MethodHeuristic, match.Method)
			if tt.expected != models.FieldTypeUnknown {
				assert.GreaterOrEqual(t, match.Confidence, 0.75,
					"accepted match must clear the calibrated acceptance line")
			}
		})
	}
}

func TestClassifyNativeEmailHighConfidence(t *testing.T) {
	c := NewFieldClassifier(testAutomationConfig(), nil)
	match := c.ClassifyHeuristicOnly(models.ElementSignals{
		Selector: "#email", InputKind: models.InputKindText, TypeAttr: "email",
	})
	require.Equal(t, models.FieldTypeEmail, match.FieldType)
	assert.GreaterOrEqual(t, match.Confidence, 0.9)
}

func TestClassifyTieBreaksTowardSpecificType(t *testing.T) {
	c := NewFieldClassifier(testAutomationConfig(), nil)
	// "date" and "salary" both hit the label with identical weight; the more
	// specific type must win deterministically.
	match := c.ClassifyHeuristicOnly(models.ElementSignals{
		Selector: "#d", InputKind: models.InputKindText, TypeAttr: "text",
		LabelText: "Salary review date",
	})
	assert.Equal(t, models.FieldTypeDate, match.FieldType)
}

func TestClassifyVisionFallback(t *testing.T) {
	vision := &fakeVision{fieldType: models.FieldTypeLocation, confidence: 0.8}
	c := NewFieldClassifier(testAutomationConfig(), vision)

	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#loc", InputKind: models.InputKindText, TypeAttr: "text",
	}, noCrop)

	assert.Equal(t, models.FieldTypeLocation, match.FieldType)
	assert.Equal(t, models.MethodVisionFallback, match.Method)
	assert.GreaterOrEqual(t, match.Confidence, 0.75)
	assert.Equal(t, 1, vision.calls)
}

func TestClassifySkipsVisionWhenHeuristicsAreConfident(t *testing.T) {
	vision := &fakeVision{fieldType: models.FieldTypeLocation, confidence: 0.9}
	c := NewFieldClassifier(testAutomationConfig(), vision)

	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#email", InputKind: models.InputKindText, TypeAttr: "email",
	}, noCrop)

	assert.Equal(t, models.FieldTypeEmail, match.FieldType)
	assert.Equal(t, models.MethodHeuristic, match.Method)
	assert.Zero(t, vision.calls, "confident heuristics must not spend a vision call")
}

func TestClassifyHybridMerge(t *testing.T) {
	vision := &fakeVision{fieldType: models.FieldTypePhone, confidence: 0.5}
	c := NewFieldClassifier(testAutomationConfig(), vision)

	// Surrounding text alone scores phone below the heuristic threshold, the
	// vision guess agrees, so the paths merge.
	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#ph", InputKind: models.InputKindText, TypeAttr: "text",
		SurroundingText: "Best phone to reach you",
	}, noCrop)

	assert.Equal(t, models.FieldTypePhone, match.FieldType)
	assert.Equal(t, models.MethodHybridMerge, match.Method)
}

func TestClassifyVisionErrorFallsBackToUnknown(t *testing.T) {
	vision := &fakeVision{err: fmt.Errorf("model server down")}
	c := NewFieldClassifier(testAutomationConfig(), vision)

	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#x", InputKind: models.InputKindText, TypeAttr: "text",
	}, noCrop)

	assert.Equal(t, models.FieldTypeUnknown, match.FieldType)
	assert.Less(t, match.Confidence, 0.75)
}

func TestClassifyBothPathsBelowThreshold(t *testing.T) {
	vision := &fakeVision{fieldType: models.FieldTypeName, confidence: 0.3}
	c := NewFieldClassifier(testAutomationConfig(), vision)

	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#x", InputKind: models.InputKindText, TypeAttr: "text",
	}, noCrop)

	assert.Equal(t, models.FieldTypeUnknown, match.FieldType)
	assert.Less(t, match.Confidence, 0.75)
}

func TestClassifyWithoutVisionClient(t *testing.T) {
	c := NewFieldClassifier(testAutomationConfig(), nil)

	match := c.Classify(context.Background(), models.ElementSignals{
		Selector: "#x", InputKind: models.InputKindText, TypeAttr: "text",
	}, noCrop)

	assert.Equal(t, models.FieldTypeUnknown, match.FieldType)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewFieldClassifier(testAutomationConfig(), nil)
	signals := models.ElementSignals{
		Selector: "#e", InputKind: models.InputKindText, TypeAttr: "text",
		LabelText: "E-mail address *", NameAttr: "contact_email",
	}

	first := c.ClassifyHeuristicOnly(signals)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.ClassifyHeuristicOnly(signals))
	}
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		raw       float64
		threshold float64
		expected  float64
	}{
		{0, 0.6, 0},
		{0.6, 0.6, 0.75},
		{1, 0.6, 1},
		{0.3, 0.6, 0.375},
		{0.4, 0.4, 0.75},
		{1, 0.4, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, calibrate(tt.raw, tt.threshold), 1e-9,
			"calibrate(%v, %v)", tt.raw, tt.threshold)
	}

	// Acceptance at either path's threshold lands on the same calibrated line.
	assert.Equal(t, calibrate(0.6, 0.6), calibrate(0.4, 0.4))
}

func TestCalibrateMonotonic(t *testing.T) {
	prev := -1.0
	for raw := 0.0; raw <= 1.0; raw += 0.05 {
		got := calibrate(raw, 0.6)
		assert.Greater(t, got, prev)
		prev = got
	}
}
