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

var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrBranchCycle    = errors.New("branch would create a cycle")
)

const treeSchemaVersion = 1

// NoteStore persists notes and the parent/child branches between them.
type NoteStore interface {
	GetNote(ctx context.Context, id string) (*types.Note, bool, error)
	GetNotes(ctx context.Context, ids []string) ([]*types.Note, error)
	ListNotes(ctx context.Context) ([]*types.Note, error)
	UpsertNote(ctx context.Context, note *types.Note) (*types.Note, error)
	DeleteNote(ctx context.Context, id string) error
	ListBranches(ctx context.Context) ([]*types.Branch, error)
	BranchesForNotes(ctx context.Context, ids []string) ([]*types.Branch, error)
	UpsertBranch(ctx context.Context, branch *types.Branch) (*types.Branch, error)
	DeleteBranch(ctx context.Context, id string) error
}

type FileNoteStore struct {
	path string
	mu   sync.Mutex
}

type treeFile struct {
	Version  int             `json:"version"`
	Notes    []*types.Note   `json:"notes"`
	Branches []*types.Branch `json:"branches"`
}

func NewFileNoteStore(path string) *FileNoteStore {
	return &FileNoteStore{path: path}
}

func (s *FileNoteStore) GetNote(ctx context.Context, id string) (*types.Note, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	for _, note := range file.Notes {
		if note.ID == id && !note.IsDeleted {
			return cloneNote(note), true, nil
		}
	}
	return nil, false, nil
}

func (s *FileNoteStore) GetNotes(ctx context.Context, ids []string) ([]*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	wanted := idSet(ids)
	out := make([]*types.Note, 0, len(ids))
	for _, note := range file.Notes {
		if _, ok := wanted[note.ID]; ok && !note.IsDeleted {
			out = append(out, cloneNote(note))
		}
	}
	return out, nil
}

func (s *FileNoteStore) ListNotes(ctx context.Context) ([]*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*types.Note, 0, len(file.Notes))
	for _, note := range file.Notes {
		if note.IsDeleted {
			continue
		}
		out = append(out, cloneNote(note))
	}
	sortNotes(out)
	return out, nil
}

func (s *FileNoteStore) UpsertNote(ctx context.Context, note *types.Note) (*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note == nil {
		return nil, errors.New("note is required")
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	var existing *types.Note
	index := -1
	for i, item := range file.Notes {
		if item.ID == note.ID {
			existing = item
			index = i
			break
		}
	}
	normalized, err := normalizeNote(note, existing)
	if err != nil {
		return nil, err
	}
	if index >= 0 {
		file.Notes[index] = normalized
	} else {
		file.Notes = append(file.Notes, normalized)
	}
	if err := s.save(file); err != nil {
		return nil, err
	}
	return cloneNote(normalized), nil
}

// DeleteNote marks the note deleted and drops every branch touching it.
func (s *FileNoteStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for _, note := range file.Notes {
		if note.ID == id && !note.IsDeleted {
			note.IsDeleted = true
			note.UpdatedAt = time.Now().UTC()
			found = true
		}
	}
	if !found {
		return ErrNoteNotFound
	}
	filtered := file.Branches[:0]
	for _, branch := range file.Branches {
		if branch.NoteID == id || branch.ParentNoteID == id {
			continue
		}
		filtered = append(filtered, branch)
	}
	file.Branches = filtered
	return s.save(file)
}

func (s *FileNoteStore) ListBranches(ctx context.Context) ([]*types.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*types.Branch, 0, len(file.Branches))
	for _, branch := range file.Branches {
		out = append(out, cloneBranch(branch))
	}
	sortBranches(out)
	return out, nil
}

func (s *FileNoteStore) BranchesForNotes(ctx context.Context, ids []string) ([]*types.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	wanted := idSet(ids)
	out := make([]*types.Branch, 0)
	for _, branch := range file.Branches {
		if !branchTouches(branch, wanted) {
			continue
		}
		out = append(out, cloneBranch(branch))
	}
	sortBranches(out)
	return out, nil
}

func (s *FileNoteStore) UpsertBranch(ctx context.Context, branch *types.Branch) (*types.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeBranch(branch)
	if err != nil {
		return nil, err
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	if createsCycle(file.Branches, normalized) {
		return nil, ErrBranchCycle
	}
	replaced := false
	for i, item := range file.Branches {
		if item.ID == normalized.ID {
			file.Branches[i] = normalized
			replaced = true
			break
		}
	}
	if !replaced {
		file.Branches = append(file.Branches, normalized)
	}
	if err := s.save(file); err != nil {
		return nil, err
	}
	return cloneBranch(normalized), nil
}

func (s *FileNoteStore) DeleteBranch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	filtered := file.Branches[:0]
	found := false
	for _, branch := range file.Branches {
		if branch.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, branch)
	}
	if !found {
		return ErrBranchNotFound
	}
	file.Branches = filtered
	return s.save(file)
}

func (s *FileNoteStore) load() (*treeFile, error) {
	file := &treeFile{}
	if err := readJSON(s.path, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newTreeFile(), nil
		}
		return nil, err
	}
	if file.Version == 0 {
		file.Version = treeSchemaVersion
	}
	if file.Notes == nil {
		file.Notes = []*types.Note{}
	}
	if file.Branches == nil {
		file.Branches = []*types.Branch{}
	}
	return file, nil
}

func (s *FileNoteStore) save(file *treeFile) error {
	file.Version = treeSchemaVersion
	return writeJSONAtomic(s.path, file)
}

func newTreeFile() *treeFile {
	return &treeFile{Version: treeSchemaVersion, Notes: []*types.Note{}, Branches: []*types.Branch{}}
}

func normalizeNote(note *types.Note, existing *types.Note) (*types.Note, error) {
	normalized := cloneNote(note)
	normalized.ID = strings.TrimSpace(normalized.ID)
	if normalized.ID == "" {
		normalized.ID = NewNoteID()
	}
	normalized.Title = strings.TrimSpace(normalized.Title)
	if normalized.Type == "" {
		normalized.Type = types.NoteTypeText
	}
	if normalized.Mime == "" && normalized.Type == types.NoteTypeText {
		normalized.Mime = "text/html"
	}
	now := time.Now().UTC()
	if existing != nil {
		normalized.CreatedAt = existing.CreatedAt
		normalized.UpdatedAt = now
	} else {
		if normalized.CreatedAt.IsZero() {
			normalized.CreatedAt = now
		}
		if normalized.UpdatedAt.IsZero() {
			normalized.UpdatedAt = normalized.CreatedAt
		}
	}
	for i := range normalized.Attributes {
		attr := &normalized.Attributes[i]
		attr.Name = strings.TrimSpace(attr.Name)
		if attr.Name == "" {
			return nil, errors.New("attribute name is required")
		}
		if attr.Type == "" {
			attr.Type = types.AttributeTypeLabel
		}
		if attr.Type != types.AttributeTypeLabel && attr.Type != types.AttributeTypeRelation {
			return nil, errors.New("unsupported attribute type: " + string(attr.Type))
		}
		if strings.TrimSpace(attr.ID) == "" {
			attr.ID = uuid.NewString()
		}
	}
	return normalized, nil
}

func normalizeBranch(branch *types.Branch) (*types.Branch, error) {
	if branch == nil {
		return nil, errors.New("branch is required")
	}
	normalized := cloneBranch(branch)
	normalized.NoteID = strings.TrimSpace(normalized.NoteID)
	normalized.ParentNoteID = strings.TrimSpace(normalized.ParentNoteID)
	if normalized.NoteID == "" || normalized.ParentNoteID == "" {
		return nil, errors.New("branch note id and parent note id are required")
	}
	if normalized.NoteID == normalized.ParentNoteID {
		return nil, ErrBranchCycle
	}
	if strings.TrimSpace(normalized.ID) == "" {
		normalized.ID = types.BranchID(normalized.ParentNoteID, normalized.NoteID)
	}
	normalized.UpdatedAt = time.Now().UTC()
	return normalized, nil
}

// createsCycle reports whether adding candidate would make its parent a
// descendant of its own child.
func createsCycle(branches []*types.Branch, candidate *types.Branch) bool {
	parentsOf := map[string][]string{}
	for _, branch := range branches {
		if branch.ID == candidate.ID {
			continue
		}
		parentsOf[branch.NoteID] = append(parentsOf[branch.NoteID], branch.ParentNoteID)
	}
	seen := map[string]struct{}{}
	queue := []string{candidate.ParentNoteID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == candidate.NoteID {
			return true
		}
		if _, ok := seen[current]; ok {
			continue
		}
		seen[current] = struct{}{}
		queue = append(queue, parentsOf[current]...)
	}
	return false
}

func cloneNote(note *types.Note) *types.Note {
	if note == nil {
		return nil
	}
	copy := *note
	if note.Attributes != nil {
		copy.Attributes = append([]types.Attribute(nil), note.Attributes...)
	}
	return &copy
}

func cloneBranch(branch *types.Branch) *types.Branch {
	if branch == nil {
		return nil
	}
	copy := *branch
	return &copy
}

func sortNotes(notes []*types.Note) {
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].ID < notes[j].ID
	})
}

func sortBranches(branches []*types.Branch) {
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].ParentNoteID != branches[j].ParentNoteID {
			return branches[i].ParentNoteID < branches[j].ParentNoteID
		}
		if branches[i].Position != branches[j].Position {
			return branches[i].Position < branches[j].Position
		}
		return branches[i].NoteID < branches[j].NoteID
	})
}

func branchTouches(branch *types.Branch, ids map[string]struct{}) bool {
	if branch == nil {
		return false
	}
	if _, ok := ids[branch.NoteID]; ok {
		return true
	}
	_, ok := ids[branch.ParentNoteID]
	return ok
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}

// NewNoteID returns a short random note id.
func NewNoteID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
