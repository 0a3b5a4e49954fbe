package notecontext

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notenav/internal/events"
	"notenav/internal/hoisting"
	"notenav/internal/notecache"
	"notenav/internal/notepath"
	"notenav/internal/options"
	"notenav/internal/store"
	"notenav/internal/types"
)

const contextTree = `
[[note]]
id = "projects"
title = "Projects"

[[note]]
id = "alpha"
title = "Alpha"
parents = ["projects"]
content = "short"

[[note]]
id = "big"
title = "Big"
parents = ["projects"]
content = "this content is longer than the configured limit"

[[note]]
id = "script"
title = "Script"
type = "code"
mime = "text/x-go"
parents = ["projects"]
content = "package main // long enough to be over the code limit"

[[note]]
id = "config"
title = "Config"
parents = ["_hidden"]

[[note]]
id = "pinned"
title = "Pinned"
parents = ["_hidden"]
  [[note.attribute]]
  name = "keepCurrentHoisting"

[[note]]
id = "_optionsAppearance"
title = "Appearance"
parents = ["_options"]

[[note]]
id = "calendar"
title = "Calendar"
type = "book"
  [[note.attribute]]
  name = "viewType"
  value = "calendar"

[[note]]
id = "shelf"
title = "Shelf"
type = "book"

[[note]]
id = "saved"
title = "Saved search"
type = "search"
`

type countingNotes struct {
	*notecache.Cache
	blobCalls atomic.Int32
}

func (n *countingNotes) Blob(ctx context.Context, noteID string) (*types.Blob, error) {
	n.blobCalls.Add(1)
	return n.Cache.Blob(ctx, noteID)
}

type harness struct {
	cache    *notecache.Cache
	notes    *countingNotes
	bus      *events.Bus
	options  *options.Options
	services *Services

	mu       sync.Mutex
	recorded []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	repo := store.NewFileRepository(store.RepositoryPaths{
		NotesPath:       filepath.Join(dir, "notes.json"),
		BlobsPath:       filepath.Join(dir, "blobs.json"),
		AttachmentsPath: filepath.Join(dir, "attachments.json"),
		OptionsPath:     filepath.Join(dir, "options.json"),
	})
	if _, err := store.ImportTree(context.Background(), repo, strings.NewReader(contextTree)); err != nil {
		t.Fatalf("import: %v", err)
	}
	bus := events.NewBus(nil)
	cache := notecache.New(repo.Notes(), notecache.WithContent(repo.Blobs(), repo.Attachments()), notecache.WithBus(bus))
	opts := options.New(repo.Options(), map[string]string{
		options.AutoReadonlySizeText: "20",
		options.AutoReadonlySizeCode: "20",
	}, nil)
	notes := &countingNotes{Cache: cache}
	h := &harness{cache: cache, notes: notes, bus: bus, options: opts}
	h.services = &Services{
		Notes:              notes,
		Resolver:           notepath.NewResolver(cache, nil, nil),
		Access:             hoisting.NewChecker(cache, nil, nil),
		Options:            opts,
		Bus:                bus,
		WidgetQueryTimeout: 30 * time.Millisecond,
	}
	for _, name := range []events.Name{events.BeforeNoteSwitch, events.NoteSwitched, events.ContextDataChanged, events.HoistedNoteChanged} {
		bus.Subscribe(name, func(ctx context.Context, event events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.recorded = append(h.recorded, event)
			return nil
		})
	}
	return h
}

func (h *harness) events(name events.Name) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.Event, 0)
	for _, event := range h.recorded {
		if event.Name == name {
			out = append(out, event)
		}
	}
	return out
}

func (h *harness) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = nil
}

func TestSetNoteBindsContext(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()

	if !ntx.IsEmpty() {
		t.Fatalf("new context should be empty")
	}
	if err := ntx.SetNote(ctx, "root/projects/alpha?x=1"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "root/projects/alpha" || ntx.NoteID() != "alpha" || ntx.ParentNoteID() != "projects" {
		t.Fatalf("unexpected state path=%q note=%q parent=%q", ntx.NotePath(), ntx.NoteID(), ntx.ParentNoteID())
	}
	if ntx.ViewScope().ViewMode != types.ViewModeDefault {
		t.Fatalf("expected default view mode, got %q", ntx.ViewScope().ViewMode)
	}
	if len(h.events(events.BeforeNoteSwitch)) != 1 {
		t.Fatalf("expected beforeNoteSwitch")
	}
	switched := h.events(events.NoteSwitched)
	if len(switched) != 1 {
		t.Fatalf("expected one noteSwitched, got %d", len(switched))
	}
	payload := switched[0].Payload.(NoteSwitchedPayload)
	if payload.NoteContext != ntx || payload.NotePath != "root/projects/alpha" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSetNoteSamePathIsNoop(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ntx.SetContextData(ctx, TableOfContents{Headings: []Heading{{Level: 1, Text: "Intro"}}}); err != nil {
		t.Fatalf("set data: %v", err)
	}
	h.reset()

	if err := ntx.SetNote(ctx, "root/projects/alpha", WithViewScope(types.ViewScope{ViewMode: types.ViewModeDefault})); err != nil {
		t.Fatalf("set note again: %v", err)
	}
	if len(h.events(events.NoteSwitched)) != 0 || len(h.events(events.BeforeNoteSwitch)) != 0 {
		t.Fatalf("unchanged navigation must not fire events")
	}
	if len(h.events(events.ContextDataChanged)) != 0 || !ntx.HasContextData(DataTableOfContents) {
		t.Fatalf("unchanged navigation must keep context data")
	}

	if err := ntx.SetNote(ctx, "root/projects/alpha", WithViewScope(types.ViewScope{ViewMode: types.ViewModeSource})); err != nil {
		t.Fatalf("set note with new scope: %v", err)
	}
	if len(h.events(events.NoteSwitched)) != 1 {
		t.Fatalf("a different view scope is a switch")
	}
}

func TestSetNoteIgnoresUnresolvablePaths(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	h.reset()
	for _, input := range []string{"", "root/projects/missing", "missing"} {
		if err := ntx.SetNote(ctx, input); err != nil {
			t.Fatalf("%q: %v", input, err)
		}
	}
	if ntx.NotePath() != "root/projects/alpha" {
		t.Fatalf("failed navigation changed the context: %q", ntx.NotePath())
	}
	if len(h.events(events.NoteSwitched)) != 0 {
		t.Fatalf("failed navigation fired noteSwitched")
	}
}

type fixedResolver string

func (r fixedResolver) ResolveString(context.Context, string, string) (string, error) {
	return string(r), nil
}

func TestSetNoteTrailingSlashLeavesContextUnchanged(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha/"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if !ntx.IsEmpty() || ntx.NotePath() != "" {
		t.Fatalf("expected an empty context, got path=%q note=%q", ntx.NotePath(), ntx.NoteID())
	}
	if len(h.events(events.NoteSwitched)) != 0 {
		t.Fatalf("unresolved navigation fired noteSwitched")
	}

	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	h.reset()
	if err := ntx.SetNote(ctx, "root/projects/alpha/"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "root/projects/alpha" || ntx.NoteID() != "alpha" {
		t.Fatalf("context changed to path=%q note=%q", ntx.NotePath(), ntx.NoteID())
	}
	if len(h.events(events.NoteSwitched)) != 0 {
		t.Fatalf("unresolved navigation fired noteSwitched")
	}
}

func TestSetNoteRejectsResolvedPathWithoutNoteID(t *testing.T) {
	h := newHarness(t)
	h.services.Resolver = fixedResolver("root/projects/")
	ntx := New(h.services)
	if err := ntx.SetNote(context.Background(), "anything"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "" || !ntx.IsEmpty() {
		t.Fatalf("context bound to %q without a note id", ntx.NotePath())
	}
	if len(h.events(events.NoteSwitched)) != 0 {
		t.Fatalf("unexpected noteSwitched")
	}
}

func TestSetNoteRepairsStalePath(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	if err := ntx.SetNote(context.Background(), "root/shelf/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "root/projects/alpha" {
		t.Fatalf("expected repaired path, got %q", ntx.NotePath())
	}
}

func TestContextDataClearedOnSwitch(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	toc := TableOfContents{Headings: []Heading{{ID: "h1", Level: 1, Text: "Intro"}}}
	if err := ntx.SetContextData(ctx, toc); err != nil {
		t.Fatalf("set data: %v", err)
	}
	got, ok := Data[TableOfContents](ntx)
	if !ok || len(got.Headings) != 1 {
		t.Fatalf("expected stored toc, got %+v %v", got, ok)
	}
	h.reset()

	if err := ntx.SetNote(ctx, "root/projects/big"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if _, ok := ntx.GetContextData(DataTableOfContents); ok {
		t.Fatalf("context data survived the switch")
	}
	changes := h.events(events.ContextDataChanged)
	if len(changes) != 1 {
		t.Fatalf("expected one contextDataChanged, got %d", len(changes))
	}
	change := changes[0].Payload.(ContextDataChangedPayload)
	if change.Key != DataTableOfContents || change.Value != nil || change.NoteContext != ntx {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestTOCTemporarilyHiddenUntilSwitch(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ntx.SetContextData(ctx, TableOfContents{Headings: []Heading{{Level: 1, Text: "Intro"}}}); err != nil {
		t.Fatalf("set data: %v", err)
	}
	h.reset()

	if err := ntx.SetTOCTemporarilyHidden(ctx, true); err != nil {
		t.Fatalf("hide toc: %v", err)
	}
	if !ntx.ViewScope().TOCTemporarilyHidden || ntx.HasContextData(DataTableOfContents) {
		t.Fatalf("hiding should drop the table of contents")
	}
	changes := h.events(events.ContextDataChanged)
	if len(changes) != 1 || changes[0].Payload.(ContextDataChangedPayload).Value != nil {
		t.Fatalf("expected one clearing contextDataChanged, got %+v", changes)
	}

	if err := ntx.SetNote(ctx, "root/projects/big"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if ntx.ViewScope().TOCTemporarilyHidden {
		t.Fatalf("a note switch should show the table of contents again")
	}
}

func TestClearContextDataBroadcasts(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetContextData(ctx, PageList{Pages: []Page{{Number: 1}}}); err != nil {
		t.Fatalf("set data: %v", err)
	}
	if err := ntx.ClearContextData(ctx, DataPageList); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ntx.HasContextData(DataPageList) {
		t.Fatalf("expected data to be cleared")
	}
	changes := h.events(events.ContextDataChanged)
	if len(changes) != 2 || changes[1].Payload.(ContextDataChangedPayload).Value != nil {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestIsReadOnlyIsMemoizedPerViewScope(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/big"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	for i := 0; i < 2; i++ {
		readOnly, err := ntx.IsReadOnly(ctx)
		if err != nil {
			t.Fatalf("read-only: %v", err)
		}
		if !readOnly {
			t.Fatalf("expected large note to be read-only")
		}
	}
	if got := h.notes.blobCalls.Load(); got != 1 {
		t.Fatalf("expected one blob fetch, got %d", got)
	}

	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	readOnly, err := ntx.IsReadOnly(ctx)
	if err != nil || readOnly {
		t.Fatalf("expected small note to be editable, got %v %v", readOnly, err)
	}
	if got := h.notes.blobCalls.Load(); got != 2 {
		t.Fatalf("expected a fresh fetch after the switch, got %d", got)
	}
}

func TestIsReadOnlyShortCircuits(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()

	if err := ntx.SetNote(ctx, "root/shelf"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if readOnly, _ := ntx.IsReadOnly(ctx); readOnly {
		t.Fatalf("book notes are never read-only")
	}

	if err := ntx.SetNote(ctx, "root/projects/alpha", WithViewScope(types.ViewScope{ViewMode: types.ViewModeSource})); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if readOnly, _ := ntx.IsReadOnly(ctx); !readOnly {
		t.Fatalf("source view is read-only")
	}

	if err := ntx.SetNote(ctx, "root/projects/script"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ntx.DisableReadOnlyTemporarily(ctx); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if readOnly, _ := ntx.IsReadOnly(ctx); readOnly {
		t.Fatalf("temporary override must win")
	}
	if got := h.notes.blobCalls.Load(); got != 0 {
		t.Fatalf("short-circuited decisions must not fetch content, got %d", got)
	}

	if err := h.options.Set(ctx, options.DatabaseReadonly, "true"); err != nil {
		t.Fatalf("set option: %v", err)
	}
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if readOnly, _ := ntx.IsReadOnly(ctx); !readOnly {
		t.Fatalf("read-only database makes every text note read-only")
	}
}

func TestAutoHoistIntoHiddenSubtree(t *testing.T) {
	cases := []struct {
		path    string
		hoisted string
	}{
		{"root/_hidden/config", types.HiddenNoteID},
		{"root/_hidden/_lbRoot", types.LaunchBarRootNoteID},
		{"root/_hidden/_options/_optionsAppearance", types.OptionsRootNoteID},
		{"root/_hidden/pinned", types.RootNoteID},
		{"root/projects/alpha", types.RootNoteID},
	}
	for _, tc := range cases {
		h := newHarness(t)
		ntx := New(h.services)
		if err := ntx.SetNote(context.Background(), tc.path); err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if ntx.HoistedNoteID() != tc.hoisted {
			t.Fatalf("%s: expected hoisting %q, got %q", tc.path, tc.hoisted, ntx.HoistedNoteID())
		}
		if ntx.NotePath() != tc.path {
			t.Fatalf("%s: auto-hoisting moved the note to %q", tc.path, ntx.NotePath())
		}
		changed := h.events(events.HoistedNoteChanged)
		if tc.hoisted == types.RootNoteID && len(changed) != 0 {
			t.Fatalf("%s: unexpected hoistedNoteChanged", tc.path)
		}
		if tc.hoisted != types.RootNoteID {
			if len(changed) != 1 || changed[0].Payload.(HoistedNoteChangedPayload).NoteID != tc.hoisted {
				t.Fatalf("%s: expected hoistedNoteChanged, got %+v", tc.path, changed)
			}
		}
	}
}

func TestSetHoistedNoteIDNavigatesIntoSubtree(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ntx.SetHoistedNoteID(ctx, "projects"); err != nil {
		t.Fatalf("hoist: %v", err)
	}
	if ntx.NotePath() != "root/projects/alpha" {
		t.Fatalf("note inside the new hoisting must stay, got %q", ntx.NotePath())
	}
	if err := ntx.SetHoistedNoteID(ctx, "shelf"); err != nil {
		t.Fatalf("hoist: %v", err)
	}
	if ntx.NotePath() != "root/shelf" {
		t.Fatalf("expected navigation to the hoisted note, got %q", ntx.NotePath())
	}
	if len(h.events(events.HoistedNoteChanged)) != 2 {
		t.Fatalf("expected a hoistedNoteChanged per change")
	}
	if err := ntx.SetHoistedNoteID(ctx, "shelf"); err != nil || len(h.events(events.HoistedNoteChanged)) != 2 {
		t.Fatalf("same hoisting must be a no-op")
	}
	if err := ntx.Unhoist(ctx); err != nil || ntx.HoistedNoteID() != types.RootNoteID {
		t.Fatalf("unhoist: %v", err)
	}
}

func TestSetNoteOutsideHoistingRespectsPrompt(t *testing.T) {
	h := newHarness(t)
	answer := false
	h.services.Access = hoisting.NewChecker(h.cache, hoisting.PrompterFunc(func(context.Context, string) (bool, error) {
		return answer, nil
	}), nil)
	ntx := New(h.services, WithHoistedNoteID("projects"))
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ntx.SetNote(ctx, "root/shelf"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "root/projects/alpha" || ntx.HoistedNoteID() != "projects" {
		t.Fatalf("declined unhoist must leave the context alone, got %q hoisted=%q", ntx.NotePath(), ntx.HoistedNoteID())
	}
	answer = true
	if err := ntx.SetNote(ctx, "root/shelf"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if ntx.NotePath() != "root/shelf" || ntx.HoistedNoteID() != types.RootNoteID {
		t.Fatalf("expected unhoisted navigation, got %q hoisted=%q", ntx.NotePath(), ntx.HoistedNoteID())
	}
}

func TestDeletedNoteEmptiesContext(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	other := New(h.services)
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/big"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := other.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	h.reset()

	if err := h.cache.DeleteNote(ctx, "big"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ntx.IsEmpty() || ntx.NotePath() != "" {
		t.Fatalf("expected empty context, got %q", ntx.NotePath())
	}
	if other.NotePath() != "root/projects/alpha" {
		t.Fatalf("unrelated context changed")
	}
	switched := h.events(events.NoteSwitched)
	if len(switched) != 1 || switched[0].Payload.(NoteSwitchedPayload).NoteContext != ntx {
		t.Fatalf("expected one noteSwitched for the emptied context, got %+v", switched)
	}

	ntx.Close()
	other.Close()
}

func TestHasNoteList(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	cases := []struct {
		path  string
		scope types.ViewMode
		want  bool
	}{
		{"root/projects", types.ViewModeDefault, true},
		{"root/projects", types.ViewModeSource, false},
		{"root/projects/alpha", types.ViewModeDefault, false},
		{"root/calendar", types.ViewModeDefault, true},
		{"root/shelf", types.ViewModeDefault, false},
		{"root/saved", types.ViewModeDefault, false},
	}
	for _, tc := range cases {
		if err := ntx.SetNote(ctx, tc.path, WithViewScope(types.ViewScope{ViewMode: tc.scope})); err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if got := ntx.HasNoteList(); got != tc.want {
			t.Fatalf("%s (%s): expected %v, got %v", tc.path, tc.scope, tc.want, got)
		}
	}
}

func TestNavigationTitle(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()
	if title, err := ntx.NavigationTitle(ctx); err != nil || title != "" {
		t.Fatalf("empty context has no title, got %q %v", title, err)
	}
	if err := ntx.SetNote(ctx, "root/projects/alpha", WithViewScope(types.ViewScope{ViewMode: types.ViewModeSource})); err != nil {
		t.Fatalf("set note: %v", err)
	}
	title, err := ntx.NavigationTitle(ctx)
	if err != nil || title != "Alpha: source" {
		t.Fatalf("unexpected title %q %v", title, err)
	}
}

type blockingResolver struct {
	release map[string]chan struct{}
	started chan string
}

func (r *blockingResolver) ResolveString(ctx context.Context, notePath, hoistedNoteID string) (string, error) {
	r.started <- notePath
	if ch, ok := r.release[notePath]; ok {
		<-ch
	}
	return notePath, nil
}

func TestStaleSetNoteIsDiscarded(t *testing.T) {
	h := newHarness(t)
	resolver := &blockingResolver{
		release: map[string]chan struct{}{"root/projects/alpha": make(chan struct{})},
		started: make(chan string, 2),
	}
	h.services.Resolver = resolver
	h.services.Access = nil
	ntx := New(h.services)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- ntx.SetNote(ctx, "root/projects/alpha") }()
	<-resolver.started
	if err := ntx.SetNote(ctx, "root/projects/big"); err != nil {
		t.Fatalf("second set note: %v", err)
	}
	<-resolver.started
	close(resolver.release["root/projects/alpha"])
	if err := <-done; err != nil {
		t.Fatalf("first set note: %v", err)
	}
	if ntx.NotePath() != "root/projects/big" {
		t.Fatalf("stale resolution won: %q", ntx.NotePath())
	}
	if got := len(h.events(events.NoteSwitched)); got != 1 {
		t.Fatalf("expected a single switch, got %d", got)
	}
}

func TestWidgetQueries(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services)
	ctx := context.Background()

	editor := struct{ name string }{"editor"}
	h.bus.HandleCommand(events.ExecuteWithTextEditorCommand, func(ctx context.Context, payload any) error {
		request := payload.(WidgetRequest)
		if request.NtxID == ntx.ID() {
			request.Resolve(editor)
		}
		return nil
	})
	widget, err := ntx.TextEditor(ctx)
	if err != nil || widget != editor {
		t.Fatalf("expected editor, got %v %v", widget, err)
	}

	widget, err = ntx.CodeEditor(ctx)
	if err != nil || widget != nil {
		t.Fatalf("unhandled query should time out to nil, got %v %v", widget, err)
	}

	late := make(chan struct{})
	h.bus.HandleCommand(events.ExecuteWithTypeWidget, func(ctx context.Context, payload any) error {
		<-late
		payload.(WidgetRequest).Resolve("too late")
		return nil
	})
	start := time.Now()
	widget, err = ntx.TypeWidget(ctx)
	close(late)
	if err != nil || widget != nil {
		t.Fatalf("late widget must be ignored, got %v %v", widget, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("query was not bounded: %s", elapsed)
	}
}

type fakeCollection struct {
	contexts []*NoteContext
	active   string
}

func (f *fakeCollection) NoteContexts() []*NoteContext { return f.contexts }

func (f *fakeCollection) NoteContextByID(id string) (*NoteContext, bool) {
	for _, c := range f.contexts {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

func (f *fakeCollection) ActiveNtxID() string { return f.active }

func TestMainContextAndState(t *testing.T) {
	h := newHarness(t)
	collection := &fakeCollection{}
	h.services.Collection = collection
	main := New(h.services, WithID("main01"))
	split := New(h.services, WithID("split1"), WithMainNtxID("main01"))
	orphan := New(h.services, WithID("orphan"), WithMainNtxID("gone00"))
	collection.contexts = []*NoteContext{main, split, orphan}
	collection.active = "split1"

	if !main.IsMainContext() || split.IsMainContext() {
		t.Fatalf("unexpected main flags")
	}
	if split.MainContext() != main {
		t.Fatalf("split should resolve its main context")
	}
	if subs := main.SubContexts(); len(subs) != 2 {
		t.Fatalf("expected main and split, got %d", len(subs))
	}
	if orphan.MainContext() != orphan || !orphan.IsMainContext() {
		t.Fatalf("orphaned split should become a main context")
	}

	if err := split.SetNote(context.Background(), "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	state, ok := split.State()
	if !ok || !state.Active || state.MainNtxID != "main01" || state.NotePath != "root/projects/alpha" {
		t.Fatalf("unexpected state: %+v %v", state, ok)
	}

	hoistedEmpty := New(h.services, WithHoistedNoteID("projects"))
	if _, ok := hoistedEmpty.State(); ok {
		t.Fatalf("empty hoisted context should not be persisted")
	}
	if _, ok := main.State(); !ok {
		t.Fatalf("empty root context is persisted")
	}
}

func TestSetEmptyKeepsHoisting(t *testing.T) {
	h := newHarness(t)
	ntx := New(h.services, WithHoistedNoteID("projects"))
	ctx := context.Background()
	if err := ntx.SetNote(ctx, "root/projects/alpha"); err != nil {
		t.Fatalf("set note: %v", err)
	}
	h.reset()
	if err := ntx.SetEmpty(ctx); err != nil {
		t.Fatalf("set empty: %v", err)
	}
	if !ntx.IsEmpty() || ntx.HoistedNoteID() != "projects" {
		t.Fatalf("unexpected state after SetEmpty: empty=%v hoisted=%q", ntx.IsEmpty(), ntx.HoistedNoteID())
	}
	if ntx.ViewScope() != (types.ViewScope{}) {
		t.Fatalf("view scope should be reset")
	}
	if len(h.events(events.NoteSwitched)) != 1 {
		t.Fatalf("expected noteSwitched")
	}
}
