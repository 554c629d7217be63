package notes

import "context"

// Store is the durable local persistence for cached notes and the mutation
// queue. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, n *Note) error
	// PutAll replaces the whole note set; readers never observe a partial set.
	PutAll(ctx context.Context, ns []*Note) error
	Get(ctx context.Context, id string) (*Note, error)
	GetAll(ctx context.Context) ([]*Note, error)
	Delete(ctx context.Context, id string) error

	Enqueue(ctx context.Context, op SyncOperation) error
	// DequeueAll returns queued operations by ascending timestamp, ties by id.
	// It does not remove them.
	DequeueAll(ctx context.Context) ([]SyncOperation, error)
	Remove(ctx context.Context, opID string) error
	RetargetOperations(ctx context.Context, fromNoteID, toNoteID string) error

	Clear(ctx context.Context) error
}

// Remote is the authoritative notes API.
type Remote interface {
	ListNotes(ctx context.Context) ([]*Note, error)
	CreateNote(ctx context.Context, p Payload) (*Note, error)
	UpdateNote(ctx context.Context, id string, p Payload) (*Note, error)
	DeleteNote(ctx context.Context, id string) error
	ListArchived(ctx context.Context) ([]*Note, error)
	DeleteArchived(ctx context.Context, id string) error
}

// Pinger checks remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotCache keeps the last remote listing for a limited time.
// Load returns nil, nil when nothing fresh is available.
type SnapshotCache interface {
	Save(ctx context.Context, ns []*Note) error
	Load(ctx context.Context) ([]*Note, error)
	Clear(ctx context.Context) error
}

// Connectivity is the online/offline signal shared by the engine parts.
type Connectivity interface {
	Online() bool
	SetOnline(online bool)
	Subscribe(cb func(online bool)) (unsubscribe func())
}
