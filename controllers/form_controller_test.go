package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/models"
	"formpilot/services"
	"formpilot/utils"
)

// fakeAutomator answers detect/fill calls with canned results.
type fakeAutomator struct {
	fieldMap   models.FormFieldMap
	detectErr  error
	report     *models.FillReport
	fillErr    error
	lastURL    string
	lastMethod string
}

func (f *fakeAutomator) Detect(ctx context.Context, url, method string) (models.FormFieldMap, error) {
	f.lastURL, f.lastMethod = url, method
	return f.fieldMap, f.detectErr
}

func (f *fakeAutomator) Fill(ctx context.Context, url, profileRef string) (*models.FillReport, error) {
	f.lastURL = url
	return f.report, f.fillErr
}

func setupFormRouter(fake *fakeAutomator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	fc := NewFormController(fake)
	r := gin.New()
	r.POST("/api/form/detect", fc.Detect)
	r.POST("/api/form/fill", fc.Fill)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestDetectEndpoint(t *testing.T) {
	fake := &fakeAutomator{
		fieldMap: models.FormFieldMap{
			URL: "https://jobs.example.com/apply",
			Fields: []models.FieldMatch{{
				Signals: models.ElementSignals{
					Selector:  "#email",
					IDAttr:    "email",
					LabelText: "Work email *",
					Required:  true,
				},
				FieldType:  models.FieldTypeEmail,
				Confidence: 0.95,
				Method:     models.MethodHeuristic,
			}},
			OverallConfidence: 0.95,
		},
	}
	router := setupFormRouter(fake)

	w := postJSON(t, router, "/api/form/detect", gin.H{
		"url": "https://jobs.example.com/apply",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hybrid", fake.lastMethod, "detection method defaults to hybrid")

	var envelope struct {
		Success bool                  `json:"success"`
		Data    models.DetectResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, 1, envelope.Data.TotalFields)
	require.Len(t, envelope.Data.Fields, 1)
	assert.Equal(t, "email", envelope.Data.Fields[0].ElementID)
	assert.Equal(t, "email", envelope.Data.Fields[0].FieldType)
	assert.Equal(t, "Work email *", envelope.Data.Fields[0].Label)
	assert.True(t, envelope.Data.Fields[0].Required)
}

func TestDetectEndpointRejectsBadPayload(t *testing.T) {
	router := setupFormRouter(&fakeAutomator{})

	w := postJSON(t, router, "/api/form/detect", gin.H{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/api/form/detect", gin.H{
		"url":              "https://jobs.example.com/apply",
		"detection_method": "telepathy",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectEndpointPageUnavailable(t *testing.T) {
	fake := &fakeAutomator{detectErr: services.ErrPageUnavailable}
	router := setupFormRouter(fake)

	w := postJSON(t, router, "/api/form/detect", gin.H{
		"url": "https://jobs.example.com/apply",
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFillEndpoint(t *testing.T) {
	fake := &fakeAutomator{
		report: &models.FillReport{
			FieldsFilled:    3,
			FieldsAttempted: 3,
			Success:         true,
			Screenshots:     [][]byte{{0x89, 'P', 'N', 'G'}},
			ScreenshotKeys:  []string{"screenshots/job-1/000.png"},
			TotalElapsedMS:  1200,
		},
	}
	router := setupFormRouter(fake)

	w := postJSON(t, router, "/api/form/fill", gin.H{
		"url":         "https://jobs.example.com/apply",
		"profile_ref": "abc-123",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool                `json:"success"`
		Data    models.FillResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Success)
	assert.Equal(t, 3, envelope.Data.FieldsFilled)
	assert.Equal(t, 3, envelope.Data.FieldsAttempted)
	assert.Empty(t, envelope.Data.Errors)
	require.Len(t, envelope.Data.Screenshots, 1)
	assert.Equal(t, []string{"screenshots/job-1/000.png"}, envelope.Data.ScreenshotKeys)
}

func TestFillEndpointPartialReportOnTimeout(t *testing.T) {
	fake := &fakeAutomator{
		report: &models.FillReport{
			FieldsFilled:    2,
			FieldsAttempted: 2,
			Success:         true,
		},
		fillErr: services.ErrJobTimeout,
	}
	router := setupFormRouter(fake)

	w := postJSON(t, router, "/api/form/fill", gin.H{
		"url":         "https://jobs.example.com/apply",
		"profile_ref": "abc-123",
	})

	// A timed-out job still returns its partial report.
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.FillResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Success)
	assert.Equal(t, 2, envelope.Data.FieldsFilled)
	require.NotEmpty(t, envelope.Data.Errors)
}

func TestFillEndpointProfileNotFound(t *testing.T) {
	fake := &fakeAutomator{fillErr: services.ErrProfileNotFound}
	router := setupFormRouter(fake)

	w := postJSON(t, router, "/api/form/fill", gin.H{
		"url":         "https://jobs.example.com/apply",
		"profile_ref": "missing",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)

	var envelope utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
}

func TestFillEndpointRequiresProfileRef(t *testing.T) {
	router := setupFormRouter(&fakeAutomator{})

	w := postJSON(t, router, "/api/form/fill", gin.H{
		"url": "https://jobs.example.com/apply",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := NewHealthController(stubPool{capacity: 3, active: 1})
	r := gin.New()
	r.GET("/health", hc.Health)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status     string `json:"status"`
		ActiveJobs int64  `json:"active_jobs"`
		Capacity   int64  `json:"capacity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(1), body.ActiveJobs)
	assert.Equal(t, int64(3), body.Capacity)
}

type stubPool struct {
	capacity int64
	active   int64
}

func (s stubPool) Capacity() int64   { return s.capacity }
func (s stubPool) ActiveJobs() int64 { return s.active }
