package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/thread"
	"relay-chat/internal/push"
	"relay-chat/internal/repository"
	"relay-chat/internal/storage"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

// AttachmentUpload is one file accompanying a send request. The body is
// pushed to blob storage before the message references it.
type AttachmentUpload struct {
	Name     string
	FileType string
	Body     io.Reader
}

// ChatService implements the conversation operations: send, fetch with
// read-receipt, mark-seen, delete, and the thread listings. Every
// multi-write runs in one store transaction so unread counters never
// drift from the messages they count.
type ChatService struct {
	store      repository.Store
	blobs      storage.BlobStore
	notifier   push.Notifier
	dispatcher *Dispatcher
	log        *logger.Logger
}

func NewChatService(store repository.Store, blobs storage.BlobStore, notifier push.Notifier, dispatcher *Dispatcher, log *logger.Logger) *ChatService {
	return &ChatService{
		store:      store,
		blobs:      blobs,
		notifier:   notifier,
		dispatcher: dispatcher,
		log:        log,
	}
}

// SendMessage validates, uploads attachments, persists the message and
// thread update atomically, then hints the recipient in real time.
func (s *ChatService) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string, uploads []AttachmentUpload) (MessageView, error) {
	content = strings.TrimSpace(content)
	if senderID == uuid.Nil || recipientID == uuid.Nil {
		return MessageView{}, fmt.Errorf("%w: sender and recipient are required", relay_errors.ErrInvalidInput)
	}
	if senderID == recipientID {
		return MessageView{}, fmt.Errorf("%w: cannot message yourself", relay_errors.ErrInvalidInput)
	}
	if content == "" && len(uploads) == 0 {
		return MessageView{}, fmt.Errorf("%w: message needs content or at least one attachment", relay_errors.ErrInvalidInput)
	}
	sender, err := s.store.Users().GetByID(ctx, senderID)
	if err != nil {
		return MessageView{}, fmt.Errorf("sender: %w", err)
	}
	if _, err := s.store.Users().GetByID(ctx, recipientID); err != nil {
		return MessageView{}, fmt.Errorf("recipient: %w", err)
	}

	// Attachments go to blob storage first; any failure aborts the send
	// before a message row exists.
	attachments := make([]message.Attachment, 0, len(uploads))
	for _, up := range uploads {
		if s.blobs == nil {
			return MessageView{}, fmt.Errorf("%w: blob storage not configured", relay_errors.ErrNotUploaded)
		}
		url, err := s.blobs.Upload(ctx, up.Name, up.FileType, up.Body)
		if err != nil {
			return MessageView{}, fmt.Errorf("%w: %v", relay_errors.ErrNotUploaded, err)
		}
		attachments = append(attachments, message.Attachment{
			ID:        uuid.New(),
			FileType:  up.FileType,
			URL:       url,
			CreatedAt: time.Now(),
		})
	}

	msg := message.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     nullString(content),
		Status:      message.StatusSent,
		CreatedAt:   time.Now(),
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().Create(ctx, &msg); err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].MessageID = msg.ID
			if err := tx.Messages().CreateAttachment(ctx, &attachments[i]); err != nil {
				return err
			}
		}
		th, err := tx.Threads().FindOrCreate(ctx, senderID, recipientID)
		if err != nil {
			return fmt.Errorf("thread upsert: %w", err)
		}
		if err := tx.Threads().SetLastMessage(ctx, th.ID, uuid.NullUUID{UUID: msg.ID, Valid: true}); err != nil {
			return fmt.Errorf("thread upsert: %w", err)
		}
		if err := tx.Threads().IncrementUnread(ctx, th.ID, recipientID); err != nil {
			return fmt.Errorf("thread upsert: %w", err)
		}
		return nil
	})
	if err != nil {
		// Distinct log line: the attachments are already in blob storage
		// and now orphaned; operators reconcile from here.
		if s.log != nil {
			urls := make([]string, 0, len(attachments))
			for _, a := range attachments {
				urls = append(urls, a.URL)
			}
			s.log.WithContext(ctx).Sugar().Errorf("send %s rolled back after upload (orphaned blobs %v): %v", msg.ID, urls, err)
		}
		return MessageView{}, err
	}

	view := newMessageView(msg, attachments)

	if s.dispatcher != nil && s.dispatcher.Notify(recipientID.String(), EventMessage, view) {
		if err := s.store.Messages().MarkDelivered(ctx, msg.ID); err != nil {
			if s.log != nil {
				s.log.Errorf("mark delivered %s: %v", msg.ID, err)
			}
		} else {
			view.Status = message.StatusDelivered
		}
	} else {
		s.pushToOffline(ctx, recipientID, sender.DisplayName, view)
	}

	return view, nil
}

// FetchAndMarkSeen returns the pair's history for the requester, oldest
// first, and advances everything the peer sent to SEEN. The write on
// read is deliberate and part of the contract; repeated calls are
// stable.
func (s *ChatService) FetchAndMarkSeen(ctx context.Context, userID, otherID uuid.UUID) ([]MessageView, error) {
	if userID == otherID {
		return nil, fmt.Errorf("%w: distinct users required", relay_errors.ErrInvalidInput)
	}

	msgs, err := s.store.Messages().ListBetween(ctx, userID, otherID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.markSeen(ctx, userID, otherID); err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		// Reflect the flip in the returned payload.
		if m.RecipientID == userID && m.Status != message.StatusSeen {
			m.Status = message.StatusSeen
		}
		attachments, err := s.store.Messages().GetAttachments(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, newMessageView(m, attachments))
	}
	return views, nil
}

// MarkSeen flips the peer's messages to SEEN and zeroes the reader's
// unread counter without fetching content.
func (s *ChatService) MarkSeen(ctx context.Context, forUser, fromUser uuid.UUID) error {
	if forUser == fromUser {
		return fmt.Errorf("%w: distinct users required", relay_errors.ErrInvalidInput)
	}
	_, err := s.markSeen(ctx, forUser, fromUser)
	return err
}

func (s *ChatService) markSeen(ctx context.Context, forUser, fromUser uuid.UUID) (int64, error) {
	var flipped int64
	var th thread.Thread
	var haveThread bool

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		n, err := tx.Messages().MarkSeen(ctx, forUser, fromUser)
		if err != nil {
			return err
		}
		flipped = n

		th, err = tx.Threads().GetByPair(ctx, forUser, fromUser)
		if errors.Is(err, relay_errors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		haveThread = true
		return tx.Threads().ResetUnread(ctx, th.ID, forUser)
	})
	if err != nil {
		if s.log != nil {
			s.log.WithContext(ctx).Sugar().Errorf("mark seen %s<-%s failed: %v", forUser, fromUser, err)
		}
		return 0, err
	}

	if flipped > 0 && haveThread && s.dispatcher != nil {
		s.dispatcher.Notify(fromUser.String(), EventMessagesSeen, SeenEventView{
			ThreadID: th.ID,
			SeenBy:   forUser,
			Peer:     fromUser,
		})
	}
	return flipped, nil
}

// DeleteMessage hard-deletes one message, rewrites the thread's
// last-message pointer when it pointed here, and tells both sides.
func (s *ChatService) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	msg, err := s.store.Messages().GetByID(ctx, id)
	if err != nil {
		return err
	}
	attachments, err := s.store.Messages().GetAttachments(ctx, id)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if s.blobs == nil {
			break
		}
		if err := s.blobs.Delete(ctx, a.URL); err != nil {
			if errors.Is(err, relay_errors.ErrBlobMissing) {
				if s.log != nil {
					s.log.Infof("attachment blob already absent: %s", a.URL)
				}
				continue
			}
			if s.log != nil {
				s.log.Errorf("delete attachment blob %s: %v", a.URL, err)
			}
		}
	}

	var th thread.Thread
	var haveThread bool
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().HardDelete(ctx, id); err != nil {
			return err
		}

		var err error
		th, err = tx.Threads().GetByPair(ctx, msg.SenderID, msg.RecipientID)
		if errors.Is(err, relay_errors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		haveThread = true

		// An unseen message that disappears must release its unread
		// count.
		if msg.Status != message.StatusSeen {
			if err := tx.Threads().DecrementUnread(ctx, th.ID, msg.RecipientID); err != nil {
				return err
			}
		}

		if th.LastMessageID.Valid && th.LastMessageID.UUID == id {
			latest, err := tx.Messages().LatestBetween(ctx, msg.SenderID, msg.RecipientID)
			if errors.Is(err, relay_errors.ErrNotFound) {
				return tx.Threads().SetLastMessage(ctx, th.ID, uuid.NullUUID{})
			}
			if err != nil {
				return err
			}
			return tx.Threads().SetLastMessage(ctx, th.ID, uuid.NullUUID{UUID: latest.ID, Valid: true})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.dispatcher != nil {
		event := DeletedEventView{MessageID: id}
		if haveThread {
			event.ThreadID = th.ID
		}
		s.dispatcher.Notify(msg.SenderID.String(), EventMessageDeleted, event)
		s.dispatcher.Notify(msg.RecipientID.String(), EventMessageDeleted, event)
	}
	return nil
}

// DeleteAllForUser soft-deletes every message the user participates in
// (content stays visible to the other side) and prunes the user from
// their threads. The next send between a pair re-creates the pruned
// participant row.
func (s *ChatService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().RemoveAllForUser(ctx, userID); err != nil {
			return err
		}
		return tx.Threads().RemoveParticipantEverywhere(ctx, userID)
	})
}

// ListThreads returns the user's conversation list, most recent
// activity first, enriched with the peer's display data and the last
// message.
func (s *ChatService) ListThreads(ctx context.Context, userID uuid.UUID) ([]ThreadView, error) {
	threads, err := s.store.Threads().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ThreadView, 0, len(threads))
	for _, th := range threads {
		view := ThreadView{ID: th.ID, UpdatedAt: th.UpdatedAt}

		if otherID := thread.OtherParticipant(th.PairKey, userID); otherID != uuid.Nil {
			if other, err := s.store.Users().GetByID(ctx, otherID); err == nil {
				view.Participant = newParticipantView(other)
			} else if !errors.Is(err, relay_errors.ErrNotFound) {
				return nil, err
			}
		}

		if p, err := s.store.Threads().GetParticipant(ctx, th.ID, userID); err == nil {
			view.UnreadCount = p.UnreadCount
		}

		last, err := s.lastMessageView(ctx, th)
		if err != nil {
			return nil, err
		}
		view.LastMessage = last
		views = append(views, view)
	}
	return views, nil
}

// UnreadSummary returns the user's threads carrying unread messages.
func (s *ChatService) UnreadSummary(ctx context.Context, userID uuid.UUID) ([]UnreadItemView, error) {
	participants, err := s.store.Threads().UnreadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]UnreadItemView, 0, len(participants))
	for _, p := range participants {
		item := UnreadItemView{ThreadID: p.ThreadID, UnreadCount: p.UnreadCount}
		th, err := s.store.Threads().GetByID(ctx, p.ThreadID)
		if err != nil {
			return nil, err
		}
		last, err := s.lastMessageView(ctx, th)
		if err != nil {
			return nil, err
		}
		item.LastMessage = last
		items = append(items, item)
	}
	return items, nil
}

func (s *ChatService) lastMessageView(ctx context.Context, th thread.Thread) (*MessageView, error) {
	if !th.LastMessageID.Valid {
		return nil, nil
	}
	m, err := s.store.Messages().GetByID(ctx, th.LastMessageID.UUID)
	if errors.Is(err, relay_errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.Messages().GetAttachments(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	view := newMessageView(m, attachments)
	return &view, nil
}

// pushToOffline fans a new-message notification out to the recipient's
// device tokens. Failures are logged and never surfaced.
func (s *ChatService) pushToOffline(ctx context.Context, recipientID uuid.UUID, senderName string, view MessageView) {
	if s.notifier == nil {
		return
	}
	tokens, err := s.store.Users().PushTokens(ctx, recipientID)
	if err != nil {
		if s.log != nil {
			s.log.Errorf("load push tokens for %s: %v", recipientID, err)
		}
		return
	}
	if len(tokens) == 0 {
		return
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	body := view.Content
	if body == "" && len(view.Attachments) > 0 {
		body = "Sent an attachment"
	}
	imageURL := ""
	for _, a := range view.Attachments {
		if strings.HasPrefix(a.FileType, "image/") {
			imageURL = a.URL
			break
		}
	}

	for _, res := range s.notifier.PushMulticast(ctx, values, senderName, body, imageURL) {
		if res.Err != nil && s.log != nil {
			s.log.Warnf("push to token %s failed: %v", res.Token, res.Err)
		}
	}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
