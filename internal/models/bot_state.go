package models

import "time"

// BotState stores one serialized state record for a single scope: a user
// profile or a conversation session. PartitionKey is the chat platform and
// RowKey is "user:<id>" or "conversation:<id>".
type BotState struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	PartitionKey string `gorm:"size:64;not null;uniqueIndex:idx_partition_row"`
	RowKey       string `gorm:"size:255;not null;uniqueIndex:idx_partition_row"`
	Data         []byte
	Compressed   bool   `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"`
}
