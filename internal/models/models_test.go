package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestBotState_Fields(t *testing.T) {
	typ := reflect.TypeOf(BotState{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "PartitionKey", "uniqueIndex:idx_partition_row")
	assertGormTag(t, typ, "PartitionKey", "not null")
	assertGormTag(t, typ, "RowKey", "uniqueIndex:idx_partition_row")
	assertGormTag(t, typ, "RowKey", "size:255")
	assertGormTag(t, typ, "UpdatedAt", "index")

	assertFieldType(t, typ, "Data", "[]uint8")
	assertFieldType(t, typ, "Compressed", "bool")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestTranscriptEntry_Fields(t *testing.T) {
	typ := reflect.TypeOf(TranscriptEntry{})

	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Platform", "index:idx_transcript_conv")
	assertGormTag(t, typ, "ConversationID", "index:idx_transcript_conv")
	assertGormTag(t, typ, "Sequence", "not null")
	assertGormTag(t, typ, "Role", "size:16")
	assertGormTag(t, typ, "Content", "type:text")

	assertFieldType(t, typ, "Sequence", "int")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}
