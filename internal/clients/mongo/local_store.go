package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"note-sync/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	notesCollection = "local_notes"
	queueCollection = "sync_queue"
)

// LocalStore implements notes.Store on two collections: the cached note set
// and the pending operation queue.
//
// PutAll runs in a transaction when the deployment supports one. The mutex
// keeps readers in this process from observing a half-replaced set either way.
type LocalStore struct {
	db    *mongo.Database
	notes *mongo.Collection
	queue *mongo.Collection
	mu    sync.RWMutex
	log   *slog.Logger
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}

// translateNotFound maps the driver ErrNoDocuments to notes.ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", notes.ErrStore, op, err)
}

// NewLocalStore prepares the collections and their indexes.
func NewLocalStore(parentCtx context.Context, db *mongo.Database, log *slog.Logger) (*LocalStore, error) {
	s := &LocalStore{
		db:    db,
		notes: db.Collection(notesCollection),
		queue: db.Collection(queueCollection),
		log:   log,
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("timestamp_asc_id_asc"),
		},
		{
			Keys:    bson.D{{Key: "note_id", Value: 1}},
			Options: options.Index().SetName("note_id"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, idx := range indexes {
		if _, err := s.queue.Indexes().CreateOne(ctx, idx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				log.Debug("index already exists, continuing", "collection", queueCollection)
				continue
			}
			log.Error("failed to create index", "collection", queueCollection, "error", err)
			return nil, fmt.Errorf("failed to create %s index: %w", queueCollection, err)
		}
	}

	return s, nil
}

// Put upserts n by id.
func (s *LocalStore) Put(ctx context.Context, n *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.notes.ReplaceOne(ctx, bson.M{"_id": n.ID}, n, options.Replace().SetUpsert(true))
	if err != nil {
		return storeErr("put note", err)
	}
	return nil
}

// PutAll swaps the whole note set.
func (s *LocalStore) PutAll(ctx context.Context, ns []*notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	replace := func(ctx context.Context) error {
		if _, err := s.notes.DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
		if len(ns) == 0 {
			return nil
		}
		_, err := s.notes.InsertMany(ctx, ns)
		return err
	}

	if !SupportsTransactions() {
		if err := replace(ctx); err != nil {
			return storeErr("put all notes", err)
		}
		return nil
	}

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return storeErr("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, replace(txCtx)
	})
	if err != nil {
		return storeErr("put all notes", err)
	}
	return nil
}

// Get returns the note stored under id.
func (s *LocalStore) Get(ctx context.Context, id string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n notes.Note
	err := s.notes.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if err = translateNotFound(err); errors.Is(err, notes.ErrNoteNotFound) {
			return nil, err
		}
		return nil, storeErr("get note", err)
	}
	return &n, nil
}

// GetAll returns every cached note.
func (s *LocalStore) GetAll(ctx context.Context) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, err := s.notes.Find(ctx, bson.M{})
	if err != nil {
		return nil, storeErr("get all notes", err)
	}
	// All closes the cursor.
	out := make([]*notes.Note, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storeErr("decode notes", err)
	}
	return out, nil
}

// Delete removes note id. Missing ids are not an error.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.notes.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("delete note", err)
	}
	return nil
}

// Enqueue appends op. Reusing an op id is refused.
func (s *LocalStore) Enqueue(ctx context.Context, op notes.SyncOperation) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	if _, err := s.queue.InsertOne(ctx, op); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate operation id %s", notes.ErrStore, op.ID)
		}
		return storeErr("enqueue", err)
	}
	return nil
}

// DequeueAll returns queued operations by timestamp, ties by id.
func (s *LocalStore) DequeueAll(ctx context.Context) ([]notes.SyncOperation, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.queue.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storeErr("dequeue", err)
	}
	out := make([]notes.SyncOperation, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storeErr("decode operations", err)
	}
	return out, nil
}

// Remove deletes a queued operation. Missing ids are not an error.
func (s *LocalStore) Remove(ctx context.Context, opID string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	if _, err := s.queue.DeleteOne(ctx, bson.M{"_id": opID}); err != nil {
		return storeErr("remove operation", err)
	}
	return nil
}

// RetargetOperations points queued operations for from at to.
func (s *LocalStore) RetargetOperations(ctx context.Context, from, to string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := s.queue.UpdateMany(ctx, bson.M{"note_id": from}, bson.M{"$set": bson.M{"note_id": to}})
	if err != nil {
		return storeErr("retarget operations", err)
	}
	return nil
}

// Clear drops all notes and queued operations.
func (s *LocalStore) Clear(ctx context.Context) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.notes.DeleteMany(ctx, bson.M{}); err != nil {
		return storeErr("clear notes", err)
	}
	if _, err := s.queue.DeleteMany(ctx, bson.M{}); err != nil {
		return storeErr("clear queue", err)
	}
	return nil
}
