package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/thread"
	"relay-chat/internal/domain/user"
	"relay-chat/internal/presence"
	"relay-chat/internal/push"
	"relay-chat/internal/repository"
	"relay-chat/internal/storage"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory repository.Store. Transactions serialize on
// txMu; rollback is not simulated, tests that need failure inject it
// before any write happens.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users       map[uuid.UUID]user.User
	tokens      map[uuid.UUID][]user.PushToken
	messages    map[uuid.UUID]message.Message
	order       []uuid.UUID
	attachments map[uuid.UUID][]message.Attachment
	removals    map[uuid.UUID]map[uuid.UUID]bool

	threads       map[uuid.UUID]thread.Thread
	threadsByPair map[string]uuid.UUID
	participants  map[uuid.UUID]map[uuid.UUID]thread.Participant
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]user.User),
		tokens:        make(map[uuid.UUID][]user.PushToken),
		messages:      make(map[uuid.UUID]message.Message),
		attachments:   make(map[uuid.UUID][]message.Attachment),
		removals:      make(map[uuid.UUID]map[uuid.UUID]bool),
		threads:       make(map[uuid.UUID]thread.Thread),
		threadsByPair: make(map[string]uuid.UUID),
		participants:  make(map[uuid.UUID]map[uuid.UUID]thread.Participant),
	}
}

func (s *fakeStore) addUser(username string) uuid.UUID {
	id := uuid.New()
	s.users[id] = user.User{ID: id, Username: username, DisplayName: username, CreatedAt: time.Now()}
	return id
}

func (s *fakeStore) addPushToken(userID uuid.UUID, token string) {
	s.tokens[userID] = append(s.tokens[userID], user.PushToken{UserID: userID, Token: token, Platform: "test"})
}

func (s *fakeStore) Messages() repository.MessageRepository { return (*fakeMessages)(s) }
func (s *fakeStore) Threads() repository.ThreadRepository   { return (*fakeThreads)(s) }
func (s *fakeStore) Users() repository.UserRepository       { return (*fakeUsers)(s) }

func (s *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

type fakeMessages fakeStore

func (f *fakeMessages) Create(ctx context.Context, m *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[m.ID] = *m
	f.order = append(f.order, m.ID)
	return nil
}

func (f *fakeMessages) CreateAttachment(ctx context.Context, a *message.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[a.MessageID] = append(f.attachments[a.MessageID], *a)
	return nil
}

func (f *fakeMessages) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return message.Message{}, relay_errors.ErrNotFound
	}
	return m, nil
}

func (f *fakeMessages) GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Attachment(nil), f.attachments[messageID]...), nil
}

func (f *fakeMessages) ListBetween(ctx context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message.Message
	for _, id := range f.order {
		m, ok := f.messages[id]
		if !ok {
			continue
		}
		if !betweenPair(m, userA, userB) {
			continue
		}
		if f.removals[id][viewer] {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMessages) LatestBetween(ctx context.Context, userA, userB uuid.UUID) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		m, ok := f.messages[f.order[i]]
		if ok && betweenPair(m, userA, userB) {
			return m, nil
		}
	}
	return message.Message{}, relay_errors.ErrNotFound
}

func (f *fakeMessages) MarkSeen(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var flipped int64
	for id, m := range f.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && m.Status != message.StatusSeen {
			m.Status = message.StatusSeen
			f.messages[id] = m
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeMessages) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	if m.Status == message.StatusSent {
		m.Status = message.StatusDelivered
		f.messages[id] = m
	}
	return nil
}

func (f *fakeMessages) HardDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, id)
	delete(f.attachments, id)
	delete(f.removals, id)
	return nil
}

func (f *fakeMessages) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, m := range f.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			if f.removals[id] == nil {
				f.removals[id] = make(map[uuid.UUID]bool)
			}
			f.removals[id][userID] = true
		}
	}
	return nil
}

func betweenPair(m message.Message, userA, userB uuid.UUID) bool {
	return (m.SenderID == userA && m.RecipientID == userB) ||
		(m.SenderID == userB && m.RecipientID == userA)
}

type fakeThreads fakeStore

func (f *fakeThreads) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := thread.PairKey(userA, userB)
	id, ok := f.threadsByPair[key]
	if !ok {
		id = uuid.New()
		f.threadsByPair[key] = id
		f.threads[id] = thread.Thread{ID: id, PairKey: key, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	}
	if f.participants[id] == nil {
		f.participants[id] = make(map[uuid.UUID]thread.Participant)
	}
	for _, u := range []uuid.UUID{userA, userB} {
		if _, ok := f.participants[id][u]; !ok {
			f.participants[id][u] = thread.Participant{ThreadID: id, UserID: u}
		}
	}
	return f.threads[id], nil
}

func (f *fakeThreads) GetByPair(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.threadsByPair[thread.PairKey(userA, userB)]
	if !ok {
		return thread.Thread{}, relay_errors.ErrNotFound
	}
	return f.threads[id], nil
}

func (f *fakeThreads) GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[id]
	if !ok {
		return thread.Thread{}, relay_errors.ErrNotFound
	}
	return th, nil
}

func (f *fakeThreads) SetLastMessage(ctx context.Context, threadID uuid.UUID, messageID uuid.NullUUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[threadID]
	if !ok {
		return relay_errors.ErrNotFound
	}
	th.LastMessageID = messageID
	th.UpdatedAt = time.Now()
	f.threads[threadID] = th
	return nil
}

func (f *fakeThreads) IncrementUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[threadID][userID]
	if !ok {
		return relay_errors.ErrNotFound
	}
	p.UnreadCount++
	f.participants[threadID][userID] = p
	return nil
}

func (f *fakeThreads) DecrementUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[threadID][userID]
	if !ok {
		return nil
	}
	if p.UnreadCount > 0 {
		p.UnreadCount--
	}
	f.participants[threadID][userID] = p
	return nil
}

func (f *fakeThreads) ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[threadID][userID]
	if !ok {
		return nil
	}
	p.UnreadCount = 0
	f.participants[threadID][userID] = p
	return nil
}

func (f *fakeThreads) ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []thread.Thread
	for id, members := range f.participants {
		if _, ok := members[userID]; ok {
			out = append(out, f.threads[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeThreads) GetParticipant(ctx context.Context, threadID, userID uuid.UUID) (thread.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[threadID][userID]
	if !ok {
		return thread.Participant{}, relay_errors.ErrNotFound
	}
	return p, nil
}

func (f *fakeThreads) UnreadForUser(ctx context.Context, userID uuid.UUID) ([]thread.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []thread.Participant
	for _, members := range f.participants {
		if p, ok := members[userID]; ok && p.UnreadCount > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeThreads) RemoveParticipantEverywhere(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, members := range f.participants {
		delete(members, userID)
	}
	return nil
}

type fakeUsers fakeStore

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, relay_errors.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, relay_errors.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) PushTokens(ctx context.Context, userID uuid.UUID) ([]user.PushToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]user.PushToken(nil), f.tokens[userID]...), nil
}

type fakeBlobs struct {
	mu       sync.Mutex
	failNext bool
	uploaded []string
	deleted  []string
}

func (b *fakeBlobs) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext {
		return "", errors.New("bucket unavailable")
	}
	url := "https://blobs.test/" + name
	b.uploaded = append(b.uploaded, url)
	return url, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, objectURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, objectURL)
	return nil
}

type pushCall struct {
	tokens []string
	title  string
	body   string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []pushCall
}

func (n *fakeNotifier) PushMulticast(ctx context.Context, tokens []string, title, body, imageURL string) []push.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, pushCall{tokens: tokens, title: title, body: body})
	results := make([]push.Result, 0, len(tokens))
	for _, t := range tokens {
		results = append(results, push.Result{Token: t})
	}
	return results
}

func newService(store *fakeStore, blobs *fakeBlobs, registry *presence.MemoryRegistry) *ChatService {
	return newServiceWithNotifier(store, blobs, registry, nil)
}

func newServiceWithNotifier(store *fakeStore, blobs *fakeBlobs, registry *presence.MemoryRegistry, notifier push.Notifier) *ChatService {
	var dispatcher *Dispatcher
	if registry != nil {
		dispatcher = NewDispatcher(registry, nil)
	}
	var blobStore storage.BlobStore
	if blobs != nil {
		blobStore = blobs
	}
	return NewChatService(store, blobStore, notifier, dispatcher, nil)
}

func TestSendMessageOneThreadPerPair(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	first, err := svc.SendMessage(ctx, alice, bob, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, first.Status)

	second, err := svc.SendMessage(ctx, bob, alice, "hi back", nil)
	require.NoError(t, err)

	require.Len(t, store.threads, 1, "both directions must land in one thread")

	th, err := store.Threads().GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, second.ID, th.LastMessageID.UUID)

	pBob, err := store.Threads().GetParticipant(ctx, th.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, pBob.UnreadCount)

	pAlice, err := store.Threads().GetParticipant(ctx, th.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, pAlice.UnreadCount)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	t.Run("self send rejected", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, alice, alice, "hi", nil)
		assert.ErrorIs(t, err, relay_errors.ErrInvalidInput)
	})

	t.Run("missing ids rejected", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, uuid.Nil, bob, "hi", nil)
		assert.ErrorIs(t, err, relay_errors.ErrInvalidInput)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, alice, bob, "   ", nil)
		assert.ErrorIs(t, err, relay_errors.ErrInvalidInput)
	})

	t.Run("unknown recipient rejected", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, alice, uuid.New(), "hi", nil)
		assert.ErrorIs(t, err, relay_errors.ErrNotFound)
	})
}

func TestSendMessageUploadFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	blobs := &fakeBlobs{failNext: true}
	svc := newService(store, blobs, nil)

	uploads := []AttachmentUpload{{Name: "pic.png", FileType: "image/png", Body: strings.NewReader("data")}}
	_, err := svc.SendMessage(ctx, alice, bob, "", uploads)
	assert.ErrorIs(t, err, relay_errors.ErrNotUploaded)
	assert.Empty(t, store.messages, "failed upload must not leave a message behind")
	assert.Empty(t, store.threads)
}

func TestSendMessageDeliveredWhenRecipientOnline(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	registry := presence.NewMemoryRegistry()
	handle := &fakeHandle{}
	registry.Connect(bob.String(), handle)

	svc := newService(store, nil, registry)

	view, err := svc.SendMessage(ctx, alice, bob, "you there?", nil)
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, view.Status)

	stored, err := store.Messages().GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, stored.Status)

	payloads := handle.payloads()
	require.Len(t, payloads, 1)
	assert.Contains(t, string(payloads[0]), `"event":"message"`)
}

func TestSendMessageOfflineRecipientGetsPush(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	store.addPushToken(bob, "bob-device-1")
	notifier := &fakeNotifier{}
	svc := newServiceWithNotifier(store, nil, presence.NewMemoryRegistry(), notifier)

	view, err := svc.SendMessage(ctx, alice, bob, "into the void", nil)
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, view.Status, "no live connection, status stays SENT")

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, []string{"bob-device-1"}, notifier.calls[0].tokens)
	assert.Equal(t, "into the void", notifier.calls[0].body)
}

func TestFetchAndMarkSeen(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	registry := presence.NewMemoryRegistry()
	aliceHandle := &fakeHandle{}
	registry.Connect(alice.String(), aliceHandle)

	svc := newService(store, nil, registry)

	_, err := svc.SendMessage(ctx, alice, bob, "one", nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice, bob, "two", nil)
	require.NoError(t, err)

	views, err := svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "one", views[0].Content)
	for _, v := range views {
		assert.Equal(t, message.StatusSeen, v.Status)
	}

	th, err := store.Threads().GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	p, err := store.Threads().GetParticipant(ctx, th.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, p.UnreadCount)

	// The sender gets one seen event for the batch.
	seenEvents := 0
	for _, payload := range aliceHandle.payloads() {
		if strings.Contains(string(payload), `"event":"messagesSeen"`) {
			seenEvents++
		}
	}
	assert.Equal(t, 1, seenEvents)

	// A second fetch is stable and does not re-notify.
	views, err = svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)

	seenEvents = 0
	for _, payload := range aliceHandle.payloads() {
		if strings.Contains(string(payload), `"event":"messagesSeen"`) {
			seenEvents++
		}
	}
	assert.Equal(t, 1, seenEvents)
}

func TestDeleteMessageRepointsLastMessage(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	first, err := svc.SendMessage(ctx, alice, bob, "keep me", nil)
	require.NoError(t, err)
	second, err := svc.SendMessage(ctx, alice, bob, "delete me", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMessage(ctx, second.ID))

	th, err := store.Threads().GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	require.True(t, th.LastMessageID.Valid)
	assert.Equal(t, first.ID, th.LastMessageID.UUID)

	// Deleting an unseen message releases its unread count.
	p, err := store.Threads().GetParticipant(ctx, th.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, p.UnreadCount)

	require.NoError(t, svc.DeleteMessage(ctx, first.ID))
	th, err = store.Threads().GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, th.LastMessageID.Valid, "last message clears when nothing remains")

	_, err = store.Messages().GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
}

func TestDeleteMessageRemovesAttachmentBlobs(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	blobs := &fakeBlobs{}
	svc := newService(store, blobs, nil)

	uploads := []AttachmentUpload{{Name: "doc.pdf", FileType: "application/pdf", Body: strings.NewReader("x")}}
	view, err := svc.SendMessage(ctx, alice, bob, "", uploads)
	require.NoError(t, err)
	require.Len(t, view.Attachments, 1)

	require.NoError(t, svc.DeleteMessage(ctx, view.ID))
	assert.Equal(t, blobs.uploaded, blobs.deleted)
}

func TestDeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	_, err := svc.SendMessage(ctx, alice, bob, "before the purge", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAllForUser(ctx, bob))

	// Bob's view is empty, Alice still sees the conversation.
	bobView, err := svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	assert.Empty(t, bobView)

	aliceView, err := svc.FetchAndMarkSeen(ctx, alice, bob)
	require.NoError(t, err)
	assert.Len(t, aliceView, 1)

	bobThreads, err := svc.ListThreads(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobThreads)

	// The next send re-creates Bob's participation from zero.
	_, err = svc.SendMessage(ctx, alice, bob, "fresh start", nil)
	require.NoError(t, err)
	bobThreads, err = svc.ListThreads(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobThreads, 1)
	assert.Equal(t, 1, bobThreads[0].UnreadCount)
}

func TestConcurrentSendsAllIncrementsLand(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	const sends = 20
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, alice, bob, fmt.Sprintf("msg %d", n), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, store.threads, 1)
	th, err := store.Threads().GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	p, err := store.Threads().GetParticipant(ctx, th.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, sends, p.UnreadCount)
}

func TestListThreadsAndUnreadSummary(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")
	svc := newService(store, nil, nil)

	_, err := svc.SendMessage(ctx, alice, bob, "to bob", nil)
	require.NoError(t, err)
	last, err := svc.SendMessage(ctx, carol, bob, "to bob too", nil)
	require.NoError(t, err)

	threads, err := svc.ListThreads(ctx, bob)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.NotNil(t, threads[0].LastMessage)
	assert.Equal(t, last.ID, threads[0].LastMessage.ID)
	require.NotNil(t, threads[0].Participant)
	assert.Equal(t, "carol", threads[0].Participant.Username)
	assert.Equal(t, 1, threads[0].UnreadCount)

	unread, err := svc.UnreadSummary(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	// Reading one conversation drops it from the summary.
	_, err = svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	unread, err = svc.UnreadSummary(ctx, bob)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, 1, unread[0].UnreadCount)
}

func TestConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	svc := newService(store, nil, nil)

	sent, err := svc.SendMessage(ctx, alice, bob, "hello bob", nil)
	require.NoError(t, err)

	history, err := svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello bob", history[0].Content)
	assert.Equal(t, message.StatusSeen, history[0].Status)

	require.NoError(t, svc.DeleteMessage(ctx, sent.ID))

	history, err = svc.FetchAndMarkSeen(ctx, bob, alice)
	require.NoError(t, err)
	assert.Empty(t, history)
}
