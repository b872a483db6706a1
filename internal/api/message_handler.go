package api

import (
	"net/http"

	"athletix/tracker/internal/domain"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct{}

func NewMessageHandler() *MessageHandler {
	return &MessageHandler{}
}

// SendMessageRequest addresses a message either to a user id or, for
// athletes, to "COACH" or "TRAINER" meaning their assigned staff member.
type SendMessageRequest struct {
	ReceiverID string      `json:"receiverId"`
	ToRole     domain.Role `json:"toRole" binding:"omitempty,oneof=COACH TRAINER"`
	Text       string      `json:"text" binding:"required"`
}

func (h *MessageHandler) Contacts(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Contacts())
}

func (h *MessageHandler) Conversation(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Conversation(c.Param("userId")))
}

// SendMessage godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body SendMessageRequest true "Message"
// @Success 201 {object} domain.Message
// @Failure 409 {object} gin.H "No coach or trainer assigned"
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	receiverID := req.ReceiverID
	if receiverID == "" && req.ToRole != "" {
		staff, err := sess.StaffContact(req.ToRole)
		if err != nil {
			respondError(c, err)
			return
		}
		receiverID = staff.ID
	}

	msg, err := sess.SendMessage(c.Request.Context(), receiverID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	n, err := sess.MarkConversationRead(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
