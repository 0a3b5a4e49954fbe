package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"notenav/internal/notecache"
	"notenav/internal/notecontext"
	"notenav/internal/notepath"
	"notenav/internal/tabs"
	"notenav/internal/types"
)

type tabEntry struct {
	ntxID  string
	title  string
	active bool
	splits int
}

type childEntry struct {
	noteID   string
	title    string
	notePath string
	folder   bool
	noteType types.NoteType
}

// viewSnapshot is everything the view needs about the active context,
// gathered off the update loop.
type viewSnapshot struct {
	tabs          []tabEntry
	contextIDs    []string
	ntxID         string
	notePath      string
	breadcrumb    []string
	hoistedNoteID string
	hoistedTitle  string
	title         string
	noteType      types.NoteType
	mime          string
	viewMode      types.ViewMode
	readOnly      bool
	protected     bool
	hasNoteList   bool
	children      []childEntry
	content       string
	attachments   []string
	headings      int
	symbols       int
}

// ProtectedSession tells whether protected notes may be shown.
type ProtectedSession interface {
	IsAvailable() bool
}

type snapshotBuilder struct {
	tabs      *tabs.Manager
	notes     *notecache.Cache
	protected ProtectedSession
}

func (b snapshotBuilder) build(ctx context.Context) (viewSnapshot, error) {
	snap := viewSnapshot{}
	activeMain := b.tabs.ActiveMainContext()
	for _, main := range b.tabs.MainNoteContexts() {
		title, err := main.NavigationTitle(ctx)
		if err != nil {
			return snap, err
		}
		if title == "" {
			title = "new tab"
		}
		snap.tabs = append(snap.tabs, tabEntry{
			ntxID:  main.ID(),
			title:  title,
			active: activeMain != nil && activeMain.ID() == main.ID(),
			splits: len(main.SubContexts()) - 1,
		})
	}

	for _, c := range b.tabs.NoteContexts() {
		snap.contextIDs = append(snap.contextIDs, c.ID())
	}

	active := b.tabs.ActiveContext()
	if active == nil {
		return snap, nil
	}
	snap.ntxID = active.ID()
	snap.notePath = active.NotePath()
	snap.hoistedNoteID = active.HoistedNoteID()
	snap.viewMode = active.ViewScope().Normalized().ViewMode
	if snap.hoistedNoteID != types.RootNoteID {
		title, err := b.notes.NoteTitle(ctx, snap.hoistedNoteID, "")
		if err != nil {
			return snap, err
		}
		snap.hoistedTitle = title
	}

	note := active.Note()
	if note == nil {
		return snap, nil
	}
	breadcrumb, err := notepath.TitleComponents(ctx, b.notes, snap.notePath)
	if err != nil {
		return snap, err
	}
	snap.breadcrumb = breadcrumb
	snap.title = note.Title()
	snap.noteType = note.Type()
	snap.mime = note.Mime()
	snap.hasNoteList = active.HasNoteList()
	if snap.readOnly, err = active.IsReadOnly(ctx); err != nil {
		return snap, err
	}

	if snap.children, err = b.children(ctx, note, snap.notePath); err != nil {
		return snap, err
	}

	if note.IsProtected() && (b.protected == nil || !b.protected.IsAvailable()) {
		snap.protected = true
		return snap, nil
	}
	if snap.viewMode == types.ViewModeAttachments {
		attachments, err := b.notes.Attachments(ctx, note.ID())
		if err != nil {
			return snap, err
		}
		for _, attachment := range attachments {
			snap.attachments = append(snap.attachments, attachment.Title)
		}
		return snap, nil
	}

	blob, err := b.notes.Blob(ctx, note.ID())
	if err != nil && !errors.Is(err, notecache.ErrNoteNotFound) {
		return snap, err
	}
	if blob != nil {
		snap.content = string(blob.Content)
	}
	if err := publishContextData(ctx, active, snap.noteType, snap.content); err != nil {
		return snap, err
	}
	if toc, ok := notecontext.Data[notecontext.TableOfContents](active); ok {
		snap.headings = len(toc.Headings)
	}
	if outline, ok := notecontext.Data[notecontext.CodeOutline](active); ok {
		snap.symbols = len(outline.Symbols)
	}
	return snap, nil
}

func (b snapshotBuilder) children(ctx context.Context, note *notecache.Note, notePath string) ([]childEntry, error) {
	ids := note.ChildNoteIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := b.notes.GetNotes(ctx, ids); err != nil {
		return nil, err
	}
	out := make([]childEntry, 0, len(ids))
	for _, id := range ids {
		if id == types.HiddenNoteID {
			continue
		}
		child := b.notes.NoteFromCache(id)
		if child == nil || child.IsArchived() {
			continue
		}
		title, err := b.notes.NoteTitle(ctx, id, note.ID())
		if err != nil {
			return nil, err
		}
		out = append(out, childEntry{
			noteID:   id,
			title:    title,
			notePath: notePath + "/" + id,
			folder:   child.HasChildren(),
			noteType: child.Type(),
		})
	}
	return out, nil
}

// publishContextData derives the table of contents or code outline of the
// shown note once per note switch.
func publishContextData(ctx context.Context, ntx *notecontext.NoteContext, noteType types.NoteType, content string) error {
	switch noteType {
	case types.NoteTypeText:
		if ntx.ViewScope().TOCTemporarilyHidden || ntx.HasContextData(notecontext.DataTableOfContents) {
			return nil
		}
		return ntx.SetContextData(ctx, tableOfContents(content))
	case types.NoteTypeCode:
		if ntx.HasContextData(notecontext.DataCodeOutline) {
			return nil
		}
		return ntx.SetContextData(ctx, codeOutline(content))
	}
	return nil
}

var outlinePrefixes = []struct {
	prefix string
	kind   string
}{
	{"func ", "function"},
	{"def ", "function"},
	{"function ", "function"},
	{"async function ", "function"},
	{"class ", "class"},
	{"type ", "type"},
	{"interface ", "type"},
}

// codeOutline lists top-level declarations recognizable by their keyword.
func codeOutline(content string) notecontext.CodeOutline {
	outline := notecontext.CodeOutline{}
	for i, line := range strings.Split(content, "\n") {
		for _, candidate := range outlinePrefixes {
			rest, ok := strings.CutPrefix(line, candidate.prefix)
			if !ok {
				continue
			}
			name := strings.FieldsFunc(rest, func(r rune) bool {
				return r == '(' || r == ' ' || r == '{' || r == ':' || r == '<' || r == '='
			})
			if len(name) > 0 {
				outline.Symbols = append(outline.Symbols, notecontext.OutlineSymbol{
					Name: name[0],
					Kind: candidate.kind,
					Line: i + 1,
				})
			}
			break
		}
	}
	return outline
}

// contentElements holds the last rendered content per context so widget
// queries can be answered from any goroutine.
type contentElements struct {
	mu       sync.Mutex
	rendered map[string]string
}

func newContentElements() *contentElements {
	return &contentElements{rendered: map[string]string{}}
}

func (c *contentElements) set(ntxID, rendered string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rendered[ntxID] = rendered
}

func (c *contentElements) get(ntxID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rendered, ok := c.rendered[ntxID]
	return rendered, ok
}

func (c *contentElements) retain(ntxIDs []string) {
	keep := make(map[string]struct{}, len(ntxIDs))
	for _, id := range ntxIDs {
		keep[id] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.rendered {
		if _, ok := keep[id]; !ok {
			delete(c.rendered, id)
		}
	}
}
