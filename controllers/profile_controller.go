package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formpilot/models"
	"formpilot/services"
	"formpilot/utils"
)

type ProfileController struct {
	store *services.ProfileStore
}

func NewProfileController(store *services.ProfileStore) *ProfileController {
	return &ProfileController{store: store}
}

// Create handles POST /api/profiles: stores a fully-resolved candidate
// profile and returns the ref to hand to /api/form/fill.
func (pc *ProfileController) Create(ctx *gin.Context) {
	var profile models.CandidateProfile
	if err := ctx.ShouldBindJSON(&profile); err != nil {
		utils.BadRequestError(ctx, "Invalid candidate profile", err)
		return
	}

	ref, err := pc.store.Save(ctx.Request.Context(), &profile)
	if err != nil {
		utils.InternalServerError(ctx, "Could not store profile", err)
		return
	}

	utils.SuccessResponse(ctx, http.StatusCreated, "Profile stored", gin.H{
		"profile_ref": ref,
	})
}

// Delete handles DELETE /api/profiles/:ref for early removal ahead of the
// retention TTL.
func (pc *ProfileController) Delete(ctx *gin.Context) {
	ref := ctx.Param("ref")
	if err := pc.store.Delete(ctx.Request.Context(), ref); err != nil {
		utils.InternalServerError(ctx, "Could not delete profile", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Profile deleted", nil)
}
