package notecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"notenav/internal/events"
	"notenav/internal/logging"
	"notenav/internal/types"
)

var ErrNoteNotFound = errors.New("note not found")

const bulkLoadConcurrency = 8

// Source is where notes and branches are fetched from on a cache miss.
type Source interface {
	GetNotes(ctx context.Context, ids []string) ([]*types.Note, error)
	BranchesForNotes(ctx context.Context, ids []string) ([]*types.Branch, error)
}

type BlobSource interface {
	GetBlob(ctx context.Context, id string) (*types.Blob, bool, error)
}

type AttachmentSource interface {
	ListAttachments(ctx context.Context, ownerID string) ([]*types.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*types.Attachment, bool, error)
}

type noteDeleter interface {
	DeleteNote(ctx context.Context, id string) error
}

type Option func(*Cache)

// WithContent lets the cache serve note contents and attachments.
func WithContent(blobs BlobSource, attachments AttachmentSource) Option {
	return func(c *Cache) {
		c.blobs = blobs
		c.attachments = attachments
	}
}

func WithBus(bus *events.Bus) Option {
	return func(c *Cache) {
		c.bus = bus
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache holds the notes and branches loaded so far. Every cached note has its
// whole ancestry cached too, so paths can be computed without I/O.
type Cache struct {
	source      Source
	blobs       BlobSource
	attachments AttachmentSource
	bus         *events.Bus
	logger      logging.Logger

	mu       sync.RWMutex
	notes    map[string]*types.Note
	branches map[string]*types.Branch
	byChild  map[string]map[string]struct{}
	byParent map[string]map[string]struct{}

	loads singleflight.Group
}

func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		logger:   logging.Nop(),
		notes:    map[string]*types.Note{},
		branches: map[string]*types.Branch{},
		byChild:  map[string]map[string]struct{}{},
		byParent: map[string]map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetNote returns the note, loading it and its ancestors on a miss. A note the
// source does not know yields (nil, nil).
func (c *Cache) GetNote(ctx context.Context, id string) (*Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if note := c.NoteFromCache(id); note != nil {
		return note, nil
	}
	_, err, _ := c.loads.Do(id, func() (any, error) {
		if c.hasNote(id) {
			return nil, nil
		}
		return nil, c.load(ctx, []string{id})
	})
	if err != nil {
		return nil, fmt.Errorf("load note %s: %w", id, err)
	}
	return c.NoteFromCache(id), nil
}

// GetNotes loads ids in parallel and returns the ones that exist, in input order.
func (c *Cache) GetNotes(ctx context.Context, ids []string) ([]*Note, error) {
	found := make([]*Note, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(bulkLoadConcurrency)
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			note, err := c.GetNote(groupCtx, id)
			if err != nil {
				return err
			}
			found[i] = note
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	out := make([]*Note, 0, len(found))
	for _, note := range found {
		if note != nil {
			out = append(out, note)
		}
	}
	return out, nil
}

// NoteFromCache returns the note only if it is already loaded.
func (c *Cache) NoteFromCache(id string) *Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.notes[id]; !ok {
		return nil
	}
	return &Note{id: id, cache: c}
}

// Exists loads id and reports whether the source has it.
func (c *Cache) Exists(ctx context.Context, id string) (bool, error) {
	note, err := c.GetNote(ctx, id)
	if err != nil {
		return false, err
	}
	return note != nil, nil
}

// SortedParentNoteIDs returns the parents of a cached note, preferred routes first.
func (c *Cache) SortedParentNoteIDs(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedParentsLocked(id)
}

// BestNotePath returns the preferred root-to-note path of a cached note, or nil.
func (c *Cache) BestNotePath(id, hoistedNoteID, activeNotePath string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.notes[id]; !ok {
		return nil
	}
	records := c.sortedNotePathRecordsLocked(id, hoistedNoteID, activeNotePath)
	if len(records) == 0 {
		return nil
	}
	return append([]string(nil), records[0].NotePath...)
}

func (c *Cache) load(ctx context.Context, ids []string) error {
	if c.source == nil {
		return errors.New("note source is not configured")
	}
	var (
		fetchedNotes    []*types.Note
		fetchedBranches []*types.Branch
	)
	pending := ids
	seen := map[string]struct{}{}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, id := range pending {
			seen[id] = struct{}{}
		}
		notes, err := c.source.GetNotes(ctx, pending)
		if err != nil {
			return err
		}
		branches, err := c.source.BranchesForNotes(ctx, pending)
		if err != nil {
			return err
		}
		live := map[string]struct{}{}
		for _, note := range notes {
			if note == nil || note.IsDeleted {
				continue
			}
			live[note.ID] = struct{}{}
			fetchedNotes = append(fetchedNotes, note)
		}
		next := make([]string, 0)
		for _, branch := range branches {
			if branch == nil {
				continue
			}
			fetchedBranches = append(fetchedBranches, branch)
			if _, ok := live[branch.NoteID]; !ok {
				continue
			}
			parentID := branch.ParentNoteID
			if _, ok := seen[parentID]; ok || c.hasNote(parentID) {
				continue
			}
			seen[parentID] = struct{}{}
			next = append(next, parentID)
		}
		sort.Strings(next)
		pending = next
	}

	// Commit at once so a note never becomes visible before its ancestors.
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, note := range fetchedNotes {
		copy := *note
		c.notes[note.ID] = &copy
	}
	for _, branch := range fetchedBranches {
		c.addBranchLocked(branch)
	}
	return nil
}

func (c *Cache) hasNote(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.notes[id]
	return ok
}

func (c *Cache) addBranchLocked(branch *types.Branch) {
	if branch == nil || branch.ID == "" {
		return
	}
	copy := *branch
	c.branches[branch.ID] = &copy
	if c.byChild[branch.NoteID] == nil {
		c.byChild[branch.NoteID] = map[string]struct{}{}
	}
	c.byChild[branch.NoteID][branch.ID] = struct{}{}
	if c.byParent[branch.ParentNoteID] == nil {
		c.byParent[branch.ParentNoteID] = map[string]struct{}{}
	}
	c.byParent[branch.ParentNoteID][branch.ID] = struct{}{}
}

func (c *Cache) removeNoteLocked(id string) []string {
	delete(c.notes, id)
	removed := make([]string, 0)
	for branchID := range c.byChild[id] {
		removed = append(removed, branchID)
	}
	for branchID := range c.byParent[id] {
		removed = append(removed, branchID)
	}
	for _, branchID := range removed {
		branch := c.branches[branchID]
		if branch == nil {
			continue
		}
		delete(c.byChild[branch.NoteID], branchID)
		delete(c.byParent[branch.ParentNoteID], branchID)
		delete(c.branches, branchID)
	}
	delete(c.byChild, id)
	delete(c.byParent, id)
	sort.Strings(removed)
	return removed
}

// DeleteNote deletes id in the source, drops it from the cache and broadcasts
// entitiesReloaded.
func (c *Cache) DeleteNote(ctx context.Context, id string) error {
	deleter, ok := c.source.(noteDeleter)
	if !ok {
		return errors.New("note source does not support deletion")
	}
	if err := deleter.DeleteNote(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	branchIDs := c.removeNoteLocked(id)
	c.mu.Unlock()
	return c.publish(ctx, LoadResults{DeletedNoteIDs: []string{id}, BranchIDs: branchIDs})
}

// Reload discards cached copies of ids and fetches them again.
func (c *Cache) Reload(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	for _, id := range ids {
		c.removeNoteLocked(id)
	}
	c.mu.Unlock()
	if err := c.load(ctx, ids); err != nil {
		return err
	}
	results := LoadResults{}
	c.mu.RLock()
	for _, id := range ids {
		if _, ok := c.notes[id]; ok {
			results.ReloadedNoteIDs = append(results.ReloadedNoteIDs, id)
		} else {
			results.DeletedNoteIDs = append(results.DeletedNoteIDs, id)
		}
	}
	c.mu.RUnlock()
	return c.publish(ctx, results)
}

func (c *Cache) publish(ctx context.Context, results LoadResults) error {
	c.logger.Debug("entities_reloaded",
		logging.F("deleted", results.DeletedNoteIDs),
		logging.F("reloaded", results.ReloadedNoteIDs),
	)
	if c.bus == nil {
		return nil
	}
	return c.bus.TriggerEvent(ctx, events.EntitiesReloaded, results)
}

// Blob returns the content of a cached note.
func (c *Cache) Blob(ctx context.Context, noteID string) (*types.Blob, error) {
	c.mu.RLock()
	note := c.notes[noteID]
	c.mu.RUnlock()
	if note == nil {
		return nil, ErrNoteNotFound
	}
	if note.BlobID == "" || c.blobs == nil {
		return &types.Blob{}, nil
	}
	blob, ok, err := c.blobs.GetBlob(ctx, note.BlobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Blob{ID: note.BlobID}, nil
	}
	return blob, nil
}

func (c *Cache) Attachments(ctx context.Context, noteID string) ([]*types.Attachment, error) {
	if c.attachments == nil {
		return []*types.Attachment{}, nil
	}
	return c.attachments.ListAttachments(ctx, noteID)
}

// Attachment returns (nil, nil) when the attachment does not exist.
func (c *Cache) Attachment(ctx context.Context, id string) (*types.Attachment, error) {
	if c.attachments == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	attachment, ok, err := c.attachments.GetAttachment(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	return attachment, nil
}

// NoteTitle returns the title of noteID, prefixed by the branch prefix it has
// under parentNoteID.
func (c *Cache) NoteTitle(ctx context.Context, noteID, parentNoteID string) (string, error) {
	note, err := c.GetNote(ctx, noteID)
	if err != nil {
		return "", err
	}
	if note == nil {
		return "[not found]", nil
	}
	title := note.Title()
	if parentNoteID == "" {
		return title, nil
	}
	if branch := note.ParentBranch(parentNoteID); branch != nil && branch.Prefix != "" {
		title = branch.Prefix + " - " + title
	}
	return title, nil
}
