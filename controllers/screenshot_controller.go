package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formpilot/services"
	"formpilot/utils"
)

type ScreenshotController struct {
	shots *services.ScreenshotService
}

func NewScreenshotController(shots *services.ScreenshotService) *ScreenshotController {
	return &ScreenshotController{shots: shots}
}

// Get handles GET /api/screenshots/view/*key: redirects to a pre-signed URL
// for the archived capture.
func (sc *ScreenshotController) Get(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Param("key"), "/")
	if !strings.HasPrefix(key, "screenshots/") {
		key = "screenshots/" + key
	}

	url, err := sc.shots.PresignedURL(key)
	if err != nil {
		utils.ServiceUnavailableError(ctx, "Screenshot not available", err)
		return
	}
	ctx.Redirect(http.StatusTemporaryRedirect, url)
}

// GetURL handles GET /api/screenshots/url?key=...: returns the pre-signed
// URL as JSON instead of redirecting.
func (sc *ScreenshotController) GetURL(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Query("key"), "/")
	if key == "" {
		utils.BadRequestError(ctx, "Screenshot key is required", nil)
		return
	}
	if !strings.HasPrefix(key, "screenshots/") {
		key = "screenshots/" + key
	}

	url, err := sc.shots.PresignedURL(key)
	if err != nil {
		utils.ServiceUnavailableError(ctx, "Screenshot not available", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Screenshot URL generated", gin.H{
		"url":        url,
		"expires_in": "1 hour",
		"key":        key,
	})
}
