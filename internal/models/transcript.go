package models

import "time"

// TranscriptEntry stores a single message exchanged in a conversation.
// Sequence is monotonically increasing per (Platform, ConversationID).
type TranscriptEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Platform       string    `gorm:"size:32;not null;index:idx_transcript_conv"`
	ConversationID string    `gorm:"size:255;not null;index:idx_transcript_conv"`
	Sequence       int       `gorm:"not null"`
	Role           string    `gorm:"size:16;not null"` // "user" or "bot"
	UserName       string    `gorm:"size:128"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index"`
}
