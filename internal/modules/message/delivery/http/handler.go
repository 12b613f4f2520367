package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"skippy.dog/server/internal/modules/message/dto"
	"skippy.dog/server/internal/modules/message/service"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/response"
	"skippy.dog/server/pkg/validator"
)

type MessageHandler struct {
	service service.MessageService
}

func NewMessageHandler(service service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), userID, req.RecipientID, req.AvailabilityID, req.Body)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageResponse(*msg))
}

func (h *MessageHandler) Unread(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	msgs, err := h.service.UnreadForViewer(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMessageResponses(msgs))
}

func (h *MessageHandler) TimelineWith(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	otherID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	msgs, err := h.service.TimelineWith(c.Request.Context(), userID, otherID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMessageResponses(msgs))
}

func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	count, err := h.service.MarkConversationRead(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkedReadResponse{MarkedCount: count})
}

func (h *MessageHandler) MarkSenderRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	senderID, err := uuid.Parse(c.Param("senderID"))
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	count, err := h.service.MarkSenderRead(c.Request.Context(), userID, senderID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkedReadResponse{MarkedCount: count})
}

func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	if err := h.service.MarkMessageRead(c.Request.Context(), userID, messageID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MessageHandler) MarkAllRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkedReadResponse{MarkedCount: int(count)})
}
