package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/models"
)

func matchAt(selector string, ft models.FieldType, confidence float64, box models.BoundingBox) models.FieldMatch {
	return models.FieldMatch{
		Signals: models.ElementSignals{
			Selector: selector,
			Visible:  true,
			Box:      box,
		},
		FieldType:  ft,
		Confidence: confidence,
		Method:     models.MethodHeuristic,
	}
}

func TestAssembleFieldMapDeduplicatesOverlaps(t *testing.T) {
	// Two matches share the same footprint, as with a masked phone widget
	// built from stacked inputs.
	box := models.BoundingBox{X: 10, Y: 10, Width: 200, Height: 30}
	matches := []models.FieldMatch{
		matchAt("#a", models.FieldTypePhone, 0.9, box),
		matchAt("#b", models.FieldTypeName, 0.8, box),
	}

	fieldMap := assembleFieldMap(matches)

	require.Len(t, fieldMap.Fields, 2, "dedupe demotes, it never drops elements")
	assert.Equal(t, models.FieldTypePhone, fieldMap.Fields[0].FieldType)
	assert.Equal(t, models.FieldTypeUnknown, fieldMap.Fields[1].FieldType)
}

func TestAssembleFieldMapKeepsDisjointFields(t *testing.T) {
	matches := []models.FieldMatch{
		matchAt("#a", models.FieldTypeName, 0.9, models.BoundingBox{X: 0, Y: 0, Width: 200, Height: 30}),
		matchAt("#b", models.FieldTypeEmail, 0.9, models.BoundingBox{X: 0, Y: 100, Width: 200, Height: 30}),
	}

	fieldMap := assembleFieldMap(matches)

	assert.Equal(t, models.FieldTypeName, fieldMap.Fields[0].FieldType)
	assert.Equal(t, models.FieldTypeEmail, fieldMap.Fields[1].FieldType)
}

func TestAssembleFieldMapSinglePrimaryFileUpload(t *testing.T) {
	matches := []models.FieldMatch{
		matchAt("#resume", models.FieldTypeFileUpload, 0.95, models.BoundingBox{X: 0, Y: 0, Width: 100, Height: 30}),
		matchAt("#cover", models.FieldTypeFileUpload, 0.7, models.BoundingBox{X: 0, Y: 100, Width: 100, Height: 30}),
	}

	fieldMap := assembleFieldMap(matches)

	assert.True(t, fieldMap.Fields[0].Primary)
	assert.False(t, fieldMap.Fields[1].Primary)
}

func TestAssembleFieldMapOverallConfidence(t *testing.T) {
	matches := []models.FieldMatch{
		matchAt("#a", models.FieldTypeName, 0.8, models.BoundingBox{X: 0, Y: 0, Width: 100, Height: 30}),
		matchAt("#b", models.FieldTypeEmail, 1.0, models.BoundingBox{X: 0, Y: 100, Width: 100, Height: 30}),
		matchAt("#c", models.FieldTypeUnknown, 0.2, models.BoundingBox{X: 0, Y: 200, Width: 100, Height: 30}),
	}

	fieldMap := assembleFieldMap(matches)

	// Mean over accepted matches only; unknown does not dilute it.
	assert.InDelta(t, 0.9, fieldMap.OverallConfidence, 1e-9)
}

func TestAssembleFieldMapEmptyPage(t *testing.T) {
	fieldMap := assembleFieldMap(nil)

	assert.Empty(t, fieldMap.Fields)
	assert.Zero(t, fieldMap.OverallConfidence)
	assert.False(t, fieldMap.DetectedAt.IsZero())
}
