package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"notenav/internal/types"
)

// TreeDocument is the TOML import format: a flat list of notes, each naming
// the parents it is placed under.
type TreeDocument struct {
	Notes []TreeDocumentNote `toml:"note"`
}

type TreeDocumentNote struct {
	ID         string            `toml:"id"`
	Title      string            `toml:"title"`
	Type       types.NoteType    `toml:"type"`
	Mime       string            `toml:"mime"`
	Content    string            `toml:"content"`
	Parents    []string          `toml:"parents"`
	Prefix     string            `toml:"prefix"`
	Protected  bool              `toml:"protected"`
	Attributes []types.Attribute `toml:"attribute"`
}

type ImportResult struct {
	Notes    int
	Branches int
}

var skeletonNotes = []struct {
	id, title, parent string
	noteType          types.NoteType
}{
	{types.RootNoteID, "root", "", types.NoteTypeText},
	{types.HiddenNoteID, "Hidden Notes", types.RootNoteID, types.NoteTypeDoc},
	{types.OptionsRootNoteID, "Options", types.HiddenNoteID, types.NoteTypeBook},
	{types.LaunchBarRootNoteID, "Launch Bar", types.HiddenNoteID, types.NoteTypeDoc},
}

// EnsureRoot creates the built-in notes every tree needs when they are missing.
func EnsureRoot(ctx context.Context, repo Repository) error {
	if repo == nil {
		return errors.New("repository is required")
	}
	for _, item := range skeletonNotes {
		_, ok, err := repo.Notes().GetNote(ctx, item.id)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := repo.Notes().UpsertNote(ctx, &types.Note{ID: item.id, Title: item.title, Type: item.noteType}); err != nil {
			return err
		}
		if item.parent == "" {
			continue
		}
		if _, err := repo.Notes().UpsertBranch(ctx, &types.Branch{NoteID: item.id, ParentNoteID: item.parent}); err != nil {
			return err
		}
	}
	return nil
}

// ImportTree reads a TreeDocument and writes its notes, contents and branches.
func ImportTree(ctx context.Context, repo Repository, r io.Reader) (ImportResult, error) {
	var result ImportResult
	if repo == nil {
		return result, errors.New("repository is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return result, err
	}
	var doc TreeDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return result, fmt.Errorf("parse tree document: %w", err)
	}
	if err := EnsureRoot(ctx, repo); err != nil {
		return result, err
	}
	for i := range doc.Notes {
		item := &doc.Notes[i]
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			item.ID = NewNoteID()
		}
		note := &types.Note{
			ID:          item.ID,
			Title:       item.Title,
			Type:        item.Type,
			Mime:        item.Mime,
			IsProtected: item.Protected,
			Attributes:  item.Attributes,
		}
		if item.Content != "" {
			blob, err := repo.Blobs().UpsertBlob(ctx, &types.Blob{Content: []byte(item.Content)})
			if err != nil {
				return result, err
			}
			note.BlobID = blob.ID
		}
		if _, err := repo.Notes().UpsertNote(ctx, note); err != nil {
			return result, fmt.Errorf("import note %s: %w", item.ID, err)
		}
		result.Notes++
	}
	positions := map[string]int{}
	for _, item := range doc.Notes {
		parents := item.Parents
		if len(parents) == 0 {
			parents = []string{types.RootNoteID}
		}
		for _, parent := range parents {
			parent = strings.TrimSpace(parent)
			positions[parent] += 10
			branch := &types.Branch{
				NoteID:       item.ID,
				ParentNoteID: parent,
				Prefix:       item.Prefix,
				Position:     positions[parent],
			}
			if _, err := repo.Notes().UpsertBranch(ctx, branch); err != nil {
				return result, fmt.Errorf("import branch %s/%s: %w", parent, item.ID, err)
			}
			result.Branches++
		}
	}
	return result, nil
}
