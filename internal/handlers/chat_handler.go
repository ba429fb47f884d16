package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/services"
	"restaurant_portal/internal/validation"
	"restaurant_portal/pkg/logger"
)

const maxUploadBytes = 10 << 20

type ChatHandler struct {
	chatService services.ChatService
	validate    *validatorv10.Validate
	log         *logger.Logger
	errs        errorResponder
}

func NewChatHandler(chatService services.ChatService, authService services.AuthService, validate *validatorv10.Validate, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validate,
		log:         log,
		errs:        errorResponder{auth: authService, chat: chatService, log: log},
	}
}

// StartChat joins the caller's open support session or opens a new one.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req validation.StartChatRequest
	if c.Request.ContentLength != 0 {
		if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
			return
		}
	}

	state, err := h.chatService.Start(c.Request.Context(), sessionFrom(c), chat.StartRequest{
		RestaurantID: req.RestaurantID,
		Subject:      req.Subject,
		Category:     req.Category,
		Priority:     req.Priority,
		Message:      req.Message,
	})
	if err != nil {
		h.errs.respond(c, "start_chat", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	state, err := h.chatService.State(sessionFrom(c))
	if err != nil {
		h.errs.respond(c, "get_chat", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req validation.SendMessageRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	msg, err := h.chatService.Send(sessionFrom(c), req.Content)
	if err != nil {
		h.errs.respond(c, "send_message", err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

func (h *ChatHandler) Typing(c *gin.Context) {
	if err := h.chatService.Typing(sessionFrom(c)); err != nil {
		h.errs.respond(c, "typing", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	defer file.Close()

	attachment, err := h.chatService.Upload(c.Request.Context(), sessionFrom(c), header.Filename, file)
	if err != nil {
		h.errs.respond(c, "upload", err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

func (h *ChatHandler) EndChat(c *gin.Context) {
	if err := h.chatService.End(sessionFrom(c)); err != nil {
		h.errs.respond(c, "end_chat", err)
		return
	}
	c.Status(http.StatusNoContent)
}
