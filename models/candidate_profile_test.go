package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueFor(t *testing.T) {
	profile := &CandidateProfile{
		FullName:           "Jordan Smith",
		Email:              "jordan@example.com",
		Phone:              "+1 555 0100",
		Location:           "Toronto, Canada",
		Summary:            "Go developer.",
		SalaryExpectation:  "100000",
		AvailableStartDate: "2026-10-01",
		ResumeFilePath:     "/tmp/resume.pdf",
	}

	tests := []struct {
		fieldType FieldType
		expected  string
		ok        bool
	}{
		{FieldTypeName, "Jordan Smith", true},
		{FieldTypeEmail, "jordan@example.com", true},
		{FieldTypePhone, "+1 555 0100", true},
		{FieldTypeLocation, "Toronto, Canada", true},
		{FieldTypeFreeText, "Go developer.", true},
		{FieldTypeSalary, "100000", true},
		{FieldTypeDate, "2026-10-01", true},
		{FieldTypeSelectOption, "", false},
		{FieldTypeFileUpload, "", false},
		{FieldTypeUnknown, "", false},
	}
	for _, tt := range tests {
		value, ok := profile.ValueFor(tt.fieldType)
		assert.Equal(t, tt.ok, ok, "%s", tt.fieldType)
		assert.Equal(t, tt.expected, value, "%s", tt.fieldType)
	}
}

func TestValueForMissingData(t *testing.T) {
	profile := &CandidateProfile{FullName: "Jordan Smith", Email: "jordan@example.com"}

	_, ok := profile.ValueFor(FieldTypeSalary)
	assert.False(t, ok)

	_, ok = profile.ValueFor(FieldTypePhone)
	assert.False(t, ok)
}

func TestValueForTrimsWhitespace(t *testing.T) {
	profile := &CandidateProfile{Phone: "   "}

	_, ok := profile.ValueFor(FieldTypePhone)
	assert.False(t, ok, "whitespace-only values never resolve")
}
