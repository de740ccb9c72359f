package services

import (
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/user"

	"github.com/google/uuid"
)

// View types returned by the conversation API and carried in real-time
// event payloads.

type AttachmentView struct {
	ID       uuid.UUID `json:"id"`
	FileType string    `json:"file_type"`
	URL      string    `json:"url"`
}

type MessageView struct {
	ID          uuid.UUID        `json:"id"`
	SenderID    uuid.UUID        `json:"sender_id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Content     string           `json:"content"`
	Status      string           `json:"status"`
	Attachments []AttachmentView `json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type ParticipantView struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
}

type ThreadView struct {
	ID          uuid.UUID        `json:"id"`
	Participant *ParticipantView `json:"participant,omitempty"`
	LastMessage *MessageView     `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type UnreadItemView struct {
	ThreadID    uuid.UUID    `json:"thread_id"`
	LastMessage *MessageView `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

type SeenEventView struct {
	ThreadID uuid.UUID `json:"thread_id"`
	SeenBy   uuid.UUID `json:"seen_by"`
	Peer     uuid.UUID `json:"peer"`
}

type DeletedEventView struct {
	MessageID uuid.UUID `json:"message_id"`
	ThreadID  uuid.UUID `json:"thread_id,omitempty"`
}

func newMessageView(m message.Message, attachments []message.Attachment) MessageView {
	view := MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Text(),
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
	for _, a := range attachments {
		view.Attachments = append(view.Attachments, AttachmentView{
			ID:       a.ID,
			FileType: a.FileType,
			URL:      a.URL,
		})
	}
	return view
}

func newParticipantView(u user.User) *ParticipantView {
	return &ParticipantView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
