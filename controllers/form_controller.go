package controllers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"formpilot/models"
	"formpilot/services"
	"formpilot/utils"
)

// FormAutomator is the slice of the automation pool the form endpoints use.
type FormAutomator interface {
	Detect(ctx context.Context, url, method string) (models.FormFieldMap, error)
	Fill(ctx context.Context, url, profileRef string) (*models.FillReport, error)
}

type FormController struct {
	pool FormAutomator
}

func NewFormController(pool FormAutomator) *FormController {
	return &FormController{pool: pool}
}

// Detect handles POST /api/form/detect.
func (fc *FormController) Detect(ctx *gin.Context) {
	var req models.DetectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid detect request", err)
		return
	}
	if req.DetectionMethod == "" {
		req.DetectionMethod = "hybrid"
	}

	fieldMap, err := fc.pool.Detect(ctx.Request.Context(), req.URL, req.DetectionMethod)
	if err != nil {
		fc.renderJobError(ctx, err)
		return
	}

	resp := models.DetectResponse{
		URL:               req.URL,
		Fields:            make([]models.DetectedField, 0, len(fieldMap.Fields)),
		TotalFields:       len(fieldMap.Fields),
		OverallConfidence: fieldMap.OverallConfidence,
	}
	for _, f := range fieldMap.Fields {
		elementID := f.Signals.IDAttr
		if elementID == "" {
			elementID = f.Signals.Selector
		}
		resp.Fields = append(resp.Fields, models.DetectedField{
			ElementID:  elementID,
			FieldType:  string(f.FieldType),
			Label:      f.Signals.LabelText,
			Required:   f.Signals.Required,
			Confidence: f.Confidence,
			Primary:    f.Primary,
		})
	}

	utils.SuccessResponse(ctx, http.StatusOK, "Form detection completed", resp)
}

// Fill handles POST /api/form/fill.
func (fc *FormController) Fill(ctx *gin.Context) {
	var req models.FillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid fill request", err)
		return
	}

	report, err := fc.pool.Fill(ctx.Request.Context(), req.URL, req.ProfileRef)
	if err != nil && report == nil {
		fc.renderJobError(ctx, err)
		return
	}

	resp := models.FillResponse{
		Success:          report.Success,
		FieldsFilled:     report.FieldsFilled,
		FieldsAttempted:  report.FieldsAttempted,
		Errors:           report.Errors,
		ScreenshotKeys:   report.ScreenshotKeys,
		ProcessingTimeMS: report.TotalElapsedMS,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for _, shot := range report.Screenshots {
		resp.Screenshots = append(resp.Screenshots, base64.StdEncoding.EncodeToString(shot))
	}
	if errors.Is(err, services.ErrJobTimeout) {
		// The budget fired midway; the partial report is still the answer.
		resp.Success = false
		resp.Errors = append(resp.Errors, services.ErrJobTimeout.Error())
	}

	utils.SuccessResponse(ctx, http.StatusOK, "Form fill completed", resp)
}

func (fc *FormController) renderJobError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPageUnavailable):
		utils.ErrorResponseWithCode(ctx, http.StatusBadGateway, "Target page unavailable", err)
	case errors.Is(err, services.ErrJobTimeout):
		utils.ErrorResponseWithCode(ctx, http.StatusGatewayTimeout, "Job budget exceeded", err)
	case errors.Is(err, services.ErrProfileNotFound):
		utils.NotFoundError(ctx, "Candidate profile not found", err)
	default:
		utils.InternalServerError(ctx, "Automation job failed", err)
	}
}
