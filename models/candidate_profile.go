package models

import "strings"

// CandidateProfile is the flat, fully-resolved view of a candidate's CV data.
// It arrives from the caller (the CV pipeline lives elsewhere) and the engine
// treats it as read-only.
type CandidateProfile struct {
	FullName           string   `json:"full_name" binding:"required"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	Email              string   `json:"email" binding:"required,email"`
	Phone              string   `json:"phone"`
	Location           string   `json:"location"`
	LinkedIn           string   `json:"linkedin,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	SalaryExpectation  string   `json:"salary_expectation,omitempty"`
	AvailableStartDate string   `json:"available_start_date,omitempty"`
	ResumeFilePath     string   `json:"resume_file_path,omitempty"`
}

// ValueFor resolves the profile value to write for a semantic field type.
// The second return is false when the profile simply has nothing for that
// type, which is expected (a salary field with no stated expectation) and is
// reported as skipped_no_value rather than an error.
//
// file_upload is resolved separately via ResumeFilePath; unknown never
// resolves.
func (p *CandidateProfile) ValueFor(ft FieldType) (string, bool) {
	var v string
	switch ft {
	case FieldTypeName:
		v = p.FullName
	case FieldTypeEmail:
		v = p.Email
	case FieldTypePhone:
		v = p.Phone
	case FieldTypeLocation:
		v = p.Location
	case FieldTypeSalary:
		v = p.SalaryExpectation
	case FieldTypeDate:
		v = p.AvailableStartDate
	case FieldTypeFreeText:
		v = p.Summary
	case FieldTypeSelectOption:
		// A generic select carries no semantic hint to match against.
		return "", false
	case FieldTypeFileUpload, FieldTypeUnknown:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
