package store

import (
	"context"
	"errors"
	"strings"

	"notenav/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

type Repository interface {
	Notes() NoteStore
	Blobs() BlobStore
	Attachments() AttachmentStore
	Options() OptionStore
	RecentNotes() RecentNoteStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	NotesPath       string
	BlobsPath       string
	AttachmentsPath string
	OptionsPath     string
	RecentNotesPath string
	DBPath          string
}

type fileRepository struct {
	notes       NoteStore
	blobs       BlobStore
	attachments AttachmentStore
	options     OptionStore
	recent      RecentNoteStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		notes:       NewFileNoteStore(paths.NotesPath),
		blobs:       NewFileBlobStore(paths.BlobsPath),
		attachments: NewFileAttachmentStore(paths.AttachmentsPath),
		options:     NewFileOptionStore(paths.OptionsPath),
		recent:      NewFileRecentNoteStore(paths.RecentNotesPath),
	}
}

func (r *fileRepository) Notes() NoteStore {
	return r.notes
}

func (r *fileRepository) Blobs() BlobStore {
	return r.blobs
}

func (r *fileRepository) Attachments() AttachmentStore {
	return r.attachments
}

func (r *fileRepository) Options() OptionStore {
	return r.options
}

func (r *fileRepository) RecentNotes() RecentNoteStore {
	return r.recent
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case RepositoryBackendFile:
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}

// SeedRepositoryFromFiles copies file-backed data into dst when dst has no notes yet.
func SeedRepositoryFromFiles(ctx context.Context, dst Repository, paths RepositoryPaths) error {
	if dst == nil || dst.Backend() == RepositoryBackendFile {
		return nil
	}
	src := NewFileRepository(paths)
	defer src.Close()

	seeded, err := seedTree(ctx, dst.Notes(), src.Notes())
	if err != nil {
		return err
	}
	if seeded {
		notes, err := src.Notes().ListNotes(ctx)
		if err != nil {
			return err
		}
		if err := seedContent(ctx, dst, src, notes); err != nil {
			return err
		}
	}
	if err := seedOptions(ctx, dst.Options(), src.Options()); err != nil {
		return err
	}
	return seedRecentNotes(ctx, dst.RecentNotes(), src.RecentNotes())
}

func seedTree(ctx context.Context, dst NoteStore, src NoteStore) (bool, error) {
	current, err := dst.ListNotes(ctx)
	if err != nil {
		return false, err
	}
	if len(current) > 0 {
		return false, nil
	}
	legacy, err := src.ListNotes(ctx)
	if err != nil {
		return false, err
	}
	if len(legacy) == 0 {
		return false, nil
	}
	for _, item := range legacy {
		if _, err := dst.UpsertNote(ctx, item); err != nil {
			return false, err
		}
	}
	branches, err := src.ListBranches(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range branches {
		if _, err := dst.UpsertBranch(ctx, item); err != nil {
			return false, err
		}
	}
	return true, nil
}

func seedContent(ctx context.Context, dst Repository, src Repository, notes []*types.Note) error {
	for _, note := range notes {
		if note.BlobID != "" {
			if err := copyBlob(ctx, dst.Blobs(), src.Blobs(), note.BlobID); err != nil {
				return err
			}
		}
		attachments, err := src.Attachments().ListAttachments(ctx, note.ID)
		if err != nil {
			return err
		}
		for _, attachment := range attachments {
			if attachment.BlobID != "" {
				if err := copyBlob(ctx, dst.Blobs(), src.Blobs(), attachment.BlobID); err != nil {
					return err
				}
			}
			if _, err := dst.Attachments().UpsertAttachment(ctx, attachment); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyBlob(ctx context.Context, dst BlobStore, src BlobStore, id string) error {
	blob, ok, err := src.GetBlob(ctx, id)
	if err != nil || !ok {
		return err
	}
	_, err = dst.UpsertBlob(ctx, blob)
	return err
}

func seedOptions(ctx context.Context, dst OptionStore, src OptionStore) error {
	current, err := dst.LoadOptions(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	legacy, err := src.LoadOptions(ctx)
	if err != nil {
		return err
	}
	for name, value := range legacy {
		if err := dst.SetOption(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}

func seedRecentNotes(ctx context.Context, dst RecentNoteStore, src RecentNoteStore) error {
	current, err := dst.ListRecentNotes(ctx, 1)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	legacy, err := src.ListRecentNotes(ctx, 0)
	if err != nil {
		return err
	}
	for i := len(legacy) - 1; i >= 0; i-- {
		if err := dst.AddRecentNote(ctx, legacy[i]); err != nil {
			return err
		}
	}
	return nil
}
