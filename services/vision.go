package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"formpilot/config"
	"formpilot/models"
)

// GeminiVisionClient implements VisionClient against a generateContent-style
// model endpoint. The endpoint is configuration: a hosted Gemini model and a
// local vision model server speak the same shape.
type GeminiVisionClient struct {
	cfg    config.VisionConfig
	client *http.Client
}

func NewGeminiVisionClient(cfg config.VisionConfig) (*GeminiVisionClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("vision endpoint not configured")
	}
	return &GeminiVisionClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type visionRequest struct {
	Contents []visionContent `json:"contents"`
}

type visionContent struct {
	Role  string       `json:"role"`
	Parts []visionPart `json:"parts"`
}

type visionPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *visionInlineData `json:"inline_data,omitempty"`
}

type visionInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const visionPrompt = `You are looking at a cropped screenshot of a single form field from a job application page, plus nearby text. Classify the field into exactly one of: name, email, phone, location, file_upload, salary, free_text, date, select_option, unknown. Respond with only a JSON object: {"field_type": "...", "confidence": 0.0}`

// ClassifyField sends the cropped element image plus its textual context to
// the model and parses the type/confidence guess out of the reply.
func (v *GeminiVisionClient) ClassifyField(ctx context.Context, image []byte, contextText string) (models.FieldType, float64, error) {
	reqBody := visionRequest{
		Contents: []visionContent{{
			Role: "user",
			Parts: []visionPart{
				{Text: visionPrompt + "\n\nNearby text: " + contextText},
				{InlineData: &visionInlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return models.FieldTypeUnknown, 0, err
	}

	url := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", strings.TrimRight(v.cfg.Endpoint, "/"), v.cfg.Model, v.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return models.FieldTypeUnknown, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return models.FieldTypeUnknown, 0, fmt.Errorf("vision API error (%d): %s", resp.StatusCode, b)
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("could not decode vision response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return models.FieldTypeUnknown, 0, fmt.Errorf("empty vision response")
	}

	return parseVisionReply(parsed.Candidates[0].Content.Parts[0].Text)
}

var jsonObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// parseVisionReply extracts the {"field_type", "confidence"} object from the
// model's reply text. Models pad answers with prose and code fences, so the
// first JSON object found wins.
func parseVisionReply(text string) (models.FieldType, float64, error) {
	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return models.FieldTypeUnknown, 0, fmt.Errorf("no JSON object in vision reply")
	}

	var guess struct {
		FieldType  string  `json:"field_type"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &guess); err != nil {
		return models.FieldTypeUnknown, 0, fmt.Errorf("malformed vision reply: %w", err)
	}

	ft := models.FieldType(strings.ToLower(strings.TrimSpace(guess.FieldType)))
	if !ft.IsValid() {
		ft = models.FieldTypeUnknown
	}
	if guess.Confidence < 0 || guess.Confidence > 1 {
		return ft, 0, fmt.Errorf("vision confidence %v out of range", guess.Confidence)
	}
	return ft, guess.Confidence, nil
}
