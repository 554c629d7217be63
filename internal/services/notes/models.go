package notes

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// OfflineIDPrefix marks note ids minted locally while the remote was unreachable.
const OfflineIDPrefix = "offline-"

// Note is a single note as cached locally and exchanged with the remote API.
type Note struct {
	ID               string     `bson:"_id" json:"_id" example:"665f1c2e9b1d4a0012345678"`
	Title            string     `bson:"title" json:"title" example:"Groceries"`
	Content          string     `bson:"content" json:"content" example:"milk, eggs"`
	CreatedAt        time.Time  `bson:"created_at" json:"createdAt" example:"2025-06-01T23:00:26Z"`
	UpdatedAt        time.Time  `bson:"updated_at,omitempty" json:"updatedAt,omitzero" example:"2025-06-02T08:12:00Z"`
	LastModified     int64      `bson:"last_modified" json:"lastModified,omitempty" example:"1748818826005"`
	IsOffline        bool       `bson:"is_offline" json:"isOffline,omitempty"`
	ReminderDatetime *time.Time `bson:"reminder_datetime,omitempty" json:"reminderDatetime,omitempty"`
	ReminderSent     bool       `bson:"reminder_sent,omitempty" json:"reminderSent,omitempty"`
}

// ModifiedAt is the remote modification time used for conflict resolution:
// UpdatedAt when the server provided one, else CreatedAt.
func (n *Note) ModifiedAt() time.Time {
	if !n.UpdatedAt.IsZero() {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// Clone returns a deep copy of n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.ReminderDatetime != nil {
		t := *n.ReminderDatetime
		c.ReminderDatetime = &t
	}
	return &c
}

// Payload returns the mutable fields of n as sent to the remote API.
func (n *Note) Payload() *Payload {
	p := &Payload{Title: n.Title, Content: n.Content}
	if n.ReminderDatetime != nil {
		t := *n.ReminderDatetime
		p.ReminderDatetime = &t
	}
	return p
}

// OpType is the kind of a queued mutation.
type OpType string

// Queued mutation kinds.
const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Payload carries the note fields of a create or update.
type Payload struct {
	Title            string     `bson:"title" json:"title"`
	Content          string     `bson:"content" json:"content"`
	ReminderDatetime *time.Time `bson:"reminder_datetime,omitempty" json:"reminderDatetime,omitempty"`
}

// SyncOperation is one queued mutation awaiting replay against the remote.
type SyncOperation struct {
	ID        string   `bson:"_id" json:"id"`
	Type      OpType   `bson:"type" json:"type"`
	NoteID    string   `bson:"note_id" json:"noteId"`
	Payload   *Payload `bson:"payload,omitempty" json:"payload,omitempty"`
	Timestamp int64    `bson:"timestamp" json:"timestamp"`
}

// OperationID derives the queue id of an operation.
func OperationID(t OpType, noteID string, ts int64) string {
	return fmt.Sprintf("%s-%s-%d", t, noteID, ts)
}

// NewOfflineID mints a temporary note id that cannot collide with server ids.
func NewOfflineID() string {
	return OfflineIDPrefix + ulid.Make().String()
}

// IsOfflineID reports whether id is a locally minted placeholder.
func IsOfflineID(id string) bool {
	return strings.HasPrefix(id, OfflineIDPrefix)
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title            string     `json:"title" validate:"required,max=512" example:"Groceries"`
	Content          string     `json:"content" validate:"max=65536" example:"milk, eggs"`
	ReminderDatetime *time.Time `json:"reminderDatetime,omitempty"`
}

// UpdateNoteRequest represents a note update request. Nil fields keep their
// current value.
type UpdateNoteRequest struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=1,max=512" example:"Groceries (weekend)"`
	Content          *string    `json:"content,omitempty" validate:"omitempty,max=65536" example:"milk, eggs, bread"`
	ReminderDatetime *time.Time `json:"reminderDatetime,omitempty"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note *Note `json:"note"`
}

// ListNotesResponse is the listing returned to the UI.
type ListNotesResponse struct {
	Notes  []*Note `json:"notes"`
	Online bool    `json:"online" example:"true"`
}
