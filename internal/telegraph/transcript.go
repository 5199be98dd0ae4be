package telegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/deskbot/internal/models"
	"gorm.io/gorm"
)

// Transcript roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// DefaultHistoryLimit caps History when no limit is given.
const DefaultHistoryLimit = 200

// TranscriptStore persists the messages exchanged in each conversation.
// Sequence numbers are per (platform, conversation) and start at 1.
type TranscriptStore struct {
	db  *gorm.DB
	now func() time.Time
}

// TranscriptStoreOpts holds parameters for creating a TranscriptStore.
type TranscriptStoreOpts struct {
	DB  *gorm.DB
	Now func() time.Time // defaults to time.Now
}

// NewTranscriptStore creates a TranscriptStore.
func NewTranscriptStore(opts TranscriptStoreOpts) (*TranscriptStore, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("telegraph: transcript store: db is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TranscriptStore{db: opts.DB, now: now}, nil
}

// RecordUser appends an inbound user message.
func (ts *TranscriptStore) RecordUser(ctx context.Context, msg InboundMessage) error {
	return ts.append(ctx, msg.Platform, msg.ConversationID(), RoleUser, msg.UserName, msg.Text)
}

// RecordBot appends a bot reply, flattened to text.
func (ts *TranscriptStore) RecordBot(ctx context.Context, platform, conversationID string, reply Reply) error {
	return ts.append(ctx, platform, conversationID, RoleBot, "", RenderText(reply))
}

func (ts *TranscriptStore) append(ctx context.Context, platform, conversationID, role, userName, content string) error {
	db := ts.db.WithContext(ctx)
	seq, err := ts.nextSequence(db, platform, conversationID)
	if err != nil {
		return err
	}
	entry := models.TranscriptEntry{
		Platform:       platform,
		ConversationID: conversationID,
		Sequence:       seq,
		Role:           role,
		UserName:       userName,
		Content:        content,
		CreatedAt:      ts.now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("telegraph: record %s message: %w", role, err)
	}
	return nil
}

// History returns up to limit of the most recent entries for a conversation,
// ordered by sequence. A limit <= 0 uses DefaultHistoryLimit.
func (ts *TranscriptStore) History(ctx context.Context, platform, conversationID string, limit int) ([]models.TranscriptEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var entries []models.TranscriptEntry
	result := ts.db.WithContext(ctx).
		Where("platform = ? AND conversation_id = ?", platform, conversationID).
		Order("sequence DESC").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("telegraph: load history: %w", result.Error)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// PurgeBefore deletes entries created before cutoff and returns the count.
func (ts *TranscriptStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := ts.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.TranscriptEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("telegraph: purge transcripts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// nextSequence returns the next sequence number for a conversation.
func (ts *TranscriptStore) nextSequence(db *gorm.DB, platform, conversationID string) (int, error) {
	var maxSeq int
	result := db.Model(&models.TranscriptEntry{}).
		Where("platform = ? AND conversation_id = ?", platform, conversationID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&maxSeq)
	if result.Error != nil {
		return 0, fmt.Errorf("telegraph: next sequence: %w", result.Error)
	}
	return maxSeq + 1, nil
}
