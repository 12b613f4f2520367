package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"skippy.dog/server/internal/modules/profile/dto"
	"skippy.dog/server/internal/modules/profile/service"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/response"
	"skippy.dog/server/pkg/validator"
)

const maxPhotoSize = 5 << 20 // 5 MiB

type ProfileHandler struct {
	service service.ProfileService
}

func NewProfileHandler(service service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileResponse(profile))
}

func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	profile, err := h.service.Update(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileResponse(profile))
}

func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}
	if file.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 5MB limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer src.Close()

	profile, err := h.service.UploadPhoto(c.Request.Context(), userID, src, file.Filename)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileResponse(profile))
}

func (h *ProfileHandler) GetByID(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileResponse(profile))
}

func (h *ProfileHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	profiles, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	out := make([]dto.ProfileResponse, len(profiles))
	for i := range profiles {
		out[i] = dto.ToProfileResponse(&profiles[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *ProfileHandler) Search(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	results, err := h.service.Search(c.Request.Context(), query, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
