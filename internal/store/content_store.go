package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notenav/internal/types"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

type BlobStore interface {
	GetBlob(ctx context.Context, id string) (*types.Blob, bool, error)
	UpsertBlob(ctx context.Context, blob *types.Blob) (*types.Blob, error)
}

type AttachmentStore interface {
	GetAttachment(ctx context.Context, id string) (*types.Attachment, bool, error)
	ListAttachments(ctx context.Context, ownerID string) ([]*types.Attachment, error)
	UpsertAttachment(ctx context.Context, attachment *types.Attachment) (*types.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

type FileBlobStore struct {
	path string
	mu   sync.Mutex
}

type blobFile struct {
	Blobs map[string]*types.Blob `json:"blobs"`
}

func NewFileBlobStore(path string) *FileBlobStore {
	return &FileBlobStore{path: path}
}

func (s *FileBlobStore) GetBlob(ctx context.Context, id string) (*types.Blob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	blob, ok := file.Blobs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneBlob(blob), true, nil
}

func (s *FileBlobStore) UpsertBlob(ctx context.Context, blob *types.Blob) (*types.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeBlob(blob)
	if err != nil {
		return nil, err
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	file.Blobs[normalized.ID] = normalized
	if err := writeJSONAtomic(s.path, file); err != nil {
		return nil, err
	}
	return cloneBlob(normalized), nil
}

func (s *FileBlobStore) load() (*blobFile, error) {
	file := &blobFile{}
	if err := readJSON(s.path, file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if file.Blobs == nil {
		file.Blobs = map[string]*types.Blob{}
	}
	return file, nil
}

type FileAttachmentStore struct {
	path string
	mu   sync.Mutex
}

type attachmentFile struct {
	Attachments []*types.Attachment `json:"attachments"`
}

func NewFileAttachmentStore(path string) *FileAttachmentStore {
	return &FileAttachmentStore{path: path}
}

func (s *FileAttachmentStore) GetAttachment(ctx context.Context, id string) (*types.Attachment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	for _, item := range file.Attachments {
		if item.ID == id {
			return cloneAttachment(item), true, nil
		}
	}
	return nil, false, nil
}

func (s *FileAttachmentStore) ListAttachments(ctx context.Context, ownerID string) ([]*types.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*types.Attachment, 0)
	for _, item := range file.Attachments {
		if item.OwnerID != ownerID {
			continue
		}
		out = append(out, cloneAttachment(item))
	}
	sortAttachments(out)
	return out, nil
}

func (s *FileAttachmentStore) UpsertAttachment(ctx context.Context, attachment *types.Attachment) (*types.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeAttachment(attachment)
	if err != nil {
		return nil, err
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	replaced := false
	for i, item := range file.Attachments {
		if item.ID == normalized.ID {
			file.Attachments[i] = normalized
			replaced = true
			break
		}
	}
	if !replaced {
		file.Attachments = append(file.Attachments, normalized)
	}
	if err := writeJSONAtomic(s.path, file); err != nil {
		return nil, err
	}
	return cloneAttachment(normalized), nil
}

func (s *FileAttachmentStore) DeleteAttachment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	for i, item := range file.Attachments {
		if item.ID != id {
			continue
		}
		file.Attachments = append(file.Attachments[:i], file.Attachments[i+1:]...)
		return writeJSONAtomic(s.path, file)
	}
	return ErrAttachmentNotFound
}

func (s *FileAttachmentStore) load() (*attachmentFile, error) {
	file := &attachmentFile{}
	if err := readJSON(s.path, file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if file.Attachments == nil {
		file.Attachments = []*types.Attachment{}
	}
	return file, nil
}

func normalizeBlob(blob *types.Blob) (*types.Blob, error) {
	if blob == nil {
		return nil, errors.New("blob is required")
	}
	normalized := cloneBlob(blob)
	normalized.ID = strings.TrimSpace(normalized.ID)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	normalized.UpdatedAt = time.Now().UTC()
	return normalized, nil
}

func normalizeAttachment(attachment *types.Attachment) (*types.Attachment, error) {
	if attachment == nil {
		return nil, errors.New("attachment is required")
	}
	normalized := cloneAttachment(attachment)
	normalized.OwnerID = strings.TrimSpace(normalized.OwnerID)
	if normalized.OwnerID == "" {
		return nil, errors.New("attachment owner id is required")
	}
	normalized.ID = strings.TrimSpace(normalized.ID)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.Role == "" {
		normalized.Role = "file"
	}
	normalized.UpdatedAt = time.Now().UTC()
	return normalized, nil
}

func cloneBlob(blob *types.Blob) *types.Blob {
	if blob == nil {
		return nil
	}
	copy := *blob
	if blob.Content != nil {
		copy.Content = append([]byte(nil), blob.Content...)
	}
	return &copy
}

func cloneAttachment(attachment *types.Attachment) *types.Attachment {
	if attachment == nil {
		return nil
	}
	copy := *attachment
	return &copy
}

func sortAttachments(items []*types.Attachment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})
}
