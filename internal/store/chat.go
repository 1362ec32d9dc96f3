package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
)

type sealer interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// chatStore archives assistant sessions in Firestore. Documents carry an
// expiresAt field that the collection's TTL policy deletes on. With a sealer
// the message text is stored encrypted.
type chatStore struct {
	client *firestore.Client
	sealer sealer
}

func NewChatStore(client *firestore.Client, sealer sealer) *chatStore {
	return &chatStore{client: client, sealer: sealer}
}

func (s *chatStore) messagesCollection(uid, sessionID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("chat_sessions").Doc(sessionID).Collection("messages")
}

// SaveTurn writes a user message and the assistant reply together.
func (s *chatStore) SaveTurn(ctx context.Context, uid, sessionID string, msgs ...models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(msgs))
	coll := s.messagesCollection(uid, sessionID)
	for _, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		msg, err := s.seal(ctx, msg)
		if err != nil {
			bw.End()
			return err
		}
		job, err := bw.Create(coll.NewDoc(), msg)
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("create", "failed to queue chat message", err)
		}
		jobs = append(jobs, job)
	}

	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errs.NewDatabaseError("create", "failed to save chat message", err)
		}
	}
	return nil
}

// ListMessages returns the newest limit messages in chronological order.
func (s *chatStore) ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := s.messagesCollection(uid, sessionID).Query.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	out := []models.ChatMessage{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list chat messages", err)
		}
		var msg models.ChatMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse chat message", err)
		}
		if msg, err = s.open(ctx, msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	reverseMessages(out)
	return out, nil
}

func reverseMessages(msgs []models.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func (s *chatStore) seal(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if s.sealer == nil {
		return msg, nil
	}
	var err error
	if msg.Content, err = s.sealer.Encrypt(ctx, msg.Content); err != nil {
		return msg, err
	}
	if msg.Thinking, err = s.sealer.Encrypt(ctx, msg.Thinking); err != nil {
		return msg, err
	}
	msg.Encrypted = true
	return msg, nil
}

// open decrypts sealed messages. Messages written before encryption was
// enabled pass through unchanged.
func (s *chatStore) open(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if !msg.Encrypted {
		return msg, nil
	}
	if s.sealer == nil {
		return msg, errs.NewDatabaseError("read", "chat message is encrypted but no key is configured", nil)
	}
	var err error
	if msg.Content, err = s.sealer.Decrypt(ctx, msg.Content); err != nil {
		return msg, err
	}
	if msg.Thinking, err = s.sealer.Decrypt(ctx, msg.Thinking); err != nil {
		return msg, err
	}
	msg.Encrypted = false
	return msg, nil
}
