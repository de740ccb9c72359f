package httpdto

// SendMessageRequest is the JSON part of a send; attachments arrive as
// multipart files alongside it.
type SendMessageRequest struct {
	RecipientID string `form:"recipient_id" json:"recipient_id" binding:"required"`
	Content     string `form:"content" json:"content"`
}

type MarkSeenRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}
