package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
)

// MessageHandler serves the chat log of a consultation.
type MessageHandler struct {
	DB   *gorm.DB
	Repo consultation.Repository
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB, repo consultation.Repository) *MessageHandler {
	return &MessageHandler{DB: db, Repo: repo}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Type    models.MessageType `json:"type" binding:"omitempty,oneof=text file"`
	Content string             `json:"content" binding:"required"`
}

// SendMessage appends a message to the consultation's chat.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	rec, actor, ok := h.participant(c)
	if !ok {
		return
	}
	if rec.Status.Terminal() {
		utils.Conflict(c, "The consultation is closed")
		return
	}

	if req.Type == "" {
		req.Type = models.MessageText
	}
	message := models.Message{
		ConsultationID: rec.ID,
		SenderID:       actor.ID,
		SenderName:     middleware.GetUserNameFromContext(c),
		Type:           req.Type,
		Content:        req.Content,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	utils.Created(c, "Message sent successfully", message)
}

// GetMessages returns the chat in send order. ?since= (RFC 3339) limits the
// result to newer messages for polling clients.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	rec, _, ok := h.participant(c)
	if !ok {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).Where("consultation_id = ?", rec.ID)
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.BadRequest(c, "Invalid since timestamp, expected RFC 3339")
			return
		}
		query = query.Where("created_at > ?", t)
	}

	var messages []models.Message
	if err := query.Order("created_at asc").Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}
	utils.Success(c, "Messages fetched successfully", messages)
}

func (h *MessageHandler) participant(c *gin.Context) (*models.Consultation, consultation.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, actor, false
	}
	rec, found := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if !found {
		utils.NotFound(c, "Consultation not found")
		return nil, actor, false
	}
	if !isParticipant(actor, rec) && actor.Role != models.RoleAdmin {
		utils.Forbidden(c, "You are not a participant of this consultation")
		return nil, actor, false
	}
	return rec, actor, true
}
