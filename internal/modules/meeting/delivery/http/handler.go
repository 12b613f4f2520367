package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"skippy.dog/server/internal/modules/meeting/dto"
	"skippy.dog/server/internal/modules/meeting/service"
	"skippy.dog/server/pkg/response"
	"skippy.dog/server/pkg/validator"
)

type MeetingHandler struct {
	service service.MeetingService
}

func NewMeetingHandler(service service.MeetingService) *MeetingHandler {
	return &MeetingHandler{service: service}
}

func (h *MeetingHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.CreateMeetingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	meeting, err := h.service.Create(c.Request.Context(), userID, input)
	if err != nil {
		if errors.Is(err, service.ErrMeetingInPast) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMeetingResponse(*meeting))
}

func (h *MeetingHandler) ListUpcoming(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	meetings, err := h.service.ListUpcoming(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMeetingResponses(meetings))
}
