package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"notenav/internal/types"
)

var (
	bucketNotes       = []byte("notes")
	bucketBranches    = []byte("branches")
	bucketBlobs       = []byte("blobs")
	bucketAttachments = []byte("attachments")
	bucketOptions     = []byte("options")
	bucketRecentNotes = []byte("recent_notes")
)

type bboltRepository struct {
	db          *bolt.DB
	notes       NoteStore
	blobs       BlobStore
	attachments AttachmentStore
	options     OptionStore
	recent      RecentNoteStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:          db,
		notes:       &bboltNoteStore{db: db},
		blobs:       &bboltBlobStore{db: db},
		attachments: &bboltAttachmentStore{db: db},
		options:     &bboltOptionStore{db: db},
		recent:      &bboltRecentNoteStore{db: db},
	}, nil
}

func (r *bboltRepository) Notes() NoteStore {
	return r.notes
}

func (r *bboltRepository) Blobs() BlobStore {
	return r.blobs
}

func (r *bboltRepository) Attachments() AttachmentStore {
	return r.attachments
}

func (r *bboltRepository) Options() OptionStore {
	return r.options
}

func (r *bboltRepository) RecentNotes() RecentNoteStore {
	return r.recent
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketNotes, bucketBranches, bucketBlobs, bucketAttachments, bucketOptions, bucketRecentNotes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func bucketOrErr(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, errors.New(string(name) + " bucket missing")
	}
	return b, nil
}

type bboltNoteStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltNoteStore) GetNote(ctx context.Context, id string) (*types.Note, bool, error) {
	var (
		note *types.Note
		ok   bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return nil
		}
		item, err := decodeNote(b.Get([]byte(id)))
		if err != nil || item == nil || item.IsDeleted {
			return err
		}
		note = item
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return note, ok, nil
}

func (s *bboltNoteStore) GetNotes(ctx context.Context, ids []string) ([]*types.Note, error) {
	out := make([]*types.Note, 0, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return nil
		}
		for id := range idSet(ids) {
			item, err := decodeNote(b.Get([]byte(id)))
			if err != nil {
				return err
			}
			if item == nil || item.IsDeleted {
				continue
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNotes(out)
	return out, nil
}

func (s *bboltNoteStore) ListNotes(ctx context.Context) ([]*types.Note, error) {
	out := make([]*types.Note, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			item, err := decodeNote(v)
			if err != nil {
				return err
			}
			if item != nil && !item.IsDeleted {
				out = append(out, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNotes(out)
	return out, nil
}

func (s *bboltNoteStore) UpsertNote(ctx context.Context, note *types.Note) (*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note == nil {
		return nil, errors.New("note is required")
	}
	var normalized *types.Note
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketNotes)
		if err != nil {
			return err
		}
		existing, err := decodeNote(b.Get([]byte(strings.TrimSpace(note.ID))))
		if err != nil {
			return err
		}
		normalized, err = normalizeNote(note, existing)
		if err != nil {
			return err
		}
		return putJSON(b, normalized.ID, normalized)
	})
	if err != nil {
		return nil, err
	}
	return cloneNote(normalized), nil
}

func (s *bboltNoteStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		notes, err := bucketOrErr(tx, bucketNotes)
		if err != nil {
			return err
		}
		note, err := decodeNote(notes.Get([]byte(id)))
		if err != nil {
			return err
		}
		if note == nil || note.IsDeleted {
			return ErrNoteNotFound
		}
		note.IsDeleted = true
		note.UpdatedAt = time.Now().UTC()
		if err := putJSON(notes, note.ID, note); err != nil {
			return err
		}
		branches, err := bucketOrErr(tx, bucketBranches)
		if err != nil {
			return err
		}
		stale := make([][]byte, 0)
		err = branches.ForEach(func(k, v []byte) error {
			var branch types.Branch
			if err := json.Unmarshal(v, &branch); err != nil {
				return err
			}
			if branch.NoteID == id || branch.ParentNoteID == id {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := branches.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *bboltNoteStore) ListBranches(ctx context.Context) ([]*types.Branch, error) {
	return s.branches(nil)
}

func (s *bboltNoteStore) BranchesForNotes(ctx context.Context, ids []string) ([]*types.Branch, error) {
	wanted := idSet(ids)
	return s.branches(func(branch *types.Branch) bool {
		return branchTouches(branch, wanted)
	})
}

func (s *bboltNoteStore) branches(keep func(*types.Branch) bool) ([]*types.Branch, error) {
	out := make([]*types.Branch, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)
		if b == nil {
			return nil
		}
		all, err := decodeBranches(b)
		if err != nil {
			return err
		}
		for _, branch := range all {
			if keep == nil || keep(branch) {
				out = append(out, branch)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortBranches(out)
	return out, nil
}

func (s *bboltNoteStore) UpsertBranch(ctx context.Context, branch *types.Branch) (*types.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeBranch(branch)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketBranches)
		if err != nil {
			return err
		}
		all, err := decodeBranches(b)
		if err != nil {
			return err
		}
		if createsCycle(all, normalized) {
			return ErrBranchCycle
		}
		return putJSON(b, normalized.ID, normalized)
	})
	if err != nil {
		return nil, err
	}
	return cloneBranch(normalized), nil
}

func (s *bboltNoteStore) DeleteBranch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketBranches)
		if err != nil {
			return err
		}
		key := []byte(id)
		if b.Get(key) == nil {
			return ErrBranchNotFound
		}
		return b.Delete(key)
	})
}

type bboltBlobStore struct {
	db *bolt.DB
}

func (s *bboltBlobStore) GetBlob(ctx context.Context, id string) (*types.Blob, bool, error) {
	var blob *types.Blob
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(id))
		if len(raw) == 0 {
			return nil
		}
		var item types.Blob
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		blob = &item
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return blob, blob != nil, nil
}

func (s *bboltBlobStore) UpsertBlob(ctx context.Context, blob *types.Blob) (*types.Blob, error) {
	normalized, err := normalizeBlob(blob)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketBlobs)
		if err != nil {
			return err
		}
		return putJSON(b, normalized.ID, normalized)
	})
	if err != nil {
		return nil, err
	}
	return cloneBlob(normalized), nil
}

type bboltAttachmentStore struct {
	db *bolt.DB
}

func (s *bboltAttachmentStore) GetAttachment(ctx context.Context, id string) (*types.Attachment, bool, error) {
	var attachment *types.Attachment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttachments)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(id))
		if len(raw) == 0 {
			return nil
		}
		var item types.Attachment
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		attachment = &item
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return attachment, attachment != nil, nil
}

func (s *bboltAttachmentStore) ListAttachments(ctx context.Context, ownerID string) ([]*types.Attachment, error) {
	out := make([]*types.Attachment, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttachments)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var item types.Attachment
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if item.OwnerID == ownerID {
				out = append(out, &item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortAttachments(out)
	return out, nil
}

func (s *bboltAttachmentStore) UpsertAttachment(ctx context.Context, attachment *types.Attachment) (*types.Attachment, error) {
	normalized, err := normalizeAttachment(attachment)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketAttachments)
		if err != nil {
			return err
		}
		return putJSON(b, normalized.ID, normalized)
	})
	if err != nil {
		return nil, err
	}
	return cloneAttachment(normalized), nil
}

func (s *bboltAttachmentStore) DeleteAttachment(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketAttachments)
		if err != nil {
			return err
		}
		key := []byte(id)
		if b.Get(key) == nil {
			return ErrAttachmentNotFound
		}
		return b.Delete(key)
	})
}

type bboltOptionStore struct {
	db *bolt.DB
}

func (s *bboltOptionStore) LoadOptions(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOptions)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bboltOptionStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOptions)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(name))
		if raw == nil {
			return nil
		}
		value = string(raw)
		ok = true
		return nil
	})
	return value, ok, err
}

func (s *bboltOptionStore) SetOption(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("option name is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketOptions)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), []byte(value))
	})
}

type bboltRecentNoteStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltRecentNoteStore) AddRecentNote(ctx context.Context, note *types.RecentNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeRecentNote(note)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketOrErr(tx, bucketRecentNotes)
		if err != nil {
			return err
		}
		existing, err := decodeRecentNotes(b)
		if err != nil {
			return err
		}
		merged := mergeRecentNote(existing, normalized)
		keep := make(map[string]struct{}, len(merged))
		for _, item := range merged {
			keep[item.NoteID] = struct{}{}
			if err := putJSON(b, item.NoteID, item); err != nil {
				return err
			}
		}
		for _, item := range existing {
			if _, ok := keep[item.NoteID]; ok {
				continue
			}
			if err := b.Delete([]byte(item.NoteID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *bboltRecentNoteStore) ListRecentNotes(ctx context.Context, limit int) ([]*types.RecentNote, error) {
	var out []*types.RecentNote
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecentNotes)
		if b == nil {
			return nil
		}
		items, err := decodeRecentNotes(b)
		if err != nil {
			return err
		}
		out = limitRecentNotes(items, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.RecentNote{}
	}
	return out, nil
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), raw)
}

func decodeNote(raw []byte) (*types.Note, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var note types.Note
	if err := json.Unmarshal(raw, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func decodeBranches(b *bolt.Bucket) ([]*types.Branch, error) {
	out := make([]*types.Branch, 0)
	err := b.ForEach(func(k, v []byte) error {
		var branch types.Branch
		if err := json.Unmarshal(v, &branch); err != nil {
			return err
		}
		out = append(out, &branch)
		return nil
	})
	return out, err
}

func decodeRecentNotes(b *bolt.Bucket) ([]*types.RecentNote, error) {
	out := make([]*types.RecentNote, 0)
	err := b.ForEach(func(k, v []byte) error {
		var item types.RecentNote
		if err := json.Unmarshal(v, &item); err != nil {
			return err
		}
		out = append(out, &item)
		return nil
	})
	return out, err
}
