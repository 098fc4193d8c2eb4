package models

// DetectRequest is the payload for POST /api/form/detect.
type DetectRequest struct {
	URL             string `json:"url" binding:"required,url"`
	DetectionMethod string `json:"detection_method" binding:"omitempty,oneof=heuristic vision_fallback hybrid"`
}

// FillRequest is the payload for POST /api/form/fill. ProfileRef points at a
// candidate profile previously stored via POST /api/profiles.
type FillRequest struct {
	URL        string `json:"url" binding:"required,url"`
	ProfileRef string `json:"profile_ref" binding:"required"`
}

// DetectedField is the wire form of one FieldMatch.
type DetectedField struct {
	ElementID  string  `json:"element_id"`
	FieldType  string  `json:"field_type"`
	Label      string  `json:"label"`
	Required   bool    `json:"required"`
	Confidence float64 `json:"confidence"`
	Primary    bool    `json:"primary,omitempty"`
}

// DetectResponse is the wire form of a FormFieldMap.
type DetectResponse struct {
	URL               string          `json:"url"`
	Fields            []DetectedField `json:"fields"`
	TotalFields       int             `json:"total_fields"`
	OverallConfidence float64         `json:"overall_confidence"`
}

// FillResponse is the wire form of a FillReport. Screenshots are base64
// encoded PNGs in capture order.
type FillResponse struct {
	Success          bool     `json:"success"`
	FieldsFilled     int      `json:"fields_filled"`
	FieldsAttempted  int      `json:"fields_attempted"`
	Errors           []string `json:"errors"`
	Screenshots      []string `json:"screenshots,omitempty"`
	ScreenshotKeys   []string `json:"screenshot_keys,omitempty"`
	ProcessingTimeMS int64    `json:"processing_time"`
}
