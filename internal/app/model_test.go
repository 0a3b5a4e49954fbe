package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"notenav/internal/config"
	"notenav/internal/events"
	"notenav/internal/hoisting"
	"notenav/internal/notecache"
	"notenav/internal/notecontext"
	"notenav/internal/notepath"
	"notenav/internal/options"
	"notenav/internal/store"
	"notenav/internal/tabs"
	"notenav/internal/types"
)

const uiTree = `
[[note]]
id = "projects"
title = "Projects"
content = "# Projects\n\nAll projects.\n\n## Active\n"

[[note]]
id = "alpha"
title = "Alpha"
parents = ["projects"]
content = "alpha notes"

[[note]]
id = "beta"
title = "Beta"
type = "code"
mime = "text/x-go"
parents = ["projects"]
content = "package beta\n\nfunc Run() {}\n\ntype Config struct{}\n"

[[note]]
id = "journal"
title = "Journal"
`

type uiFixture struct {
	model *Model
	tabs  *tabs.Manager
	bus   *events.Bus
	inbox *Inbox
}

func newUIFixture(t *testing.T) *uiFixture {
	t.Helper()
	dir := t.TempDir()
	repo := store.NewFileRepository(store.RepositoryPaths{
		NotesPath:       filepath.Join(dir, "notes.json"),
		BlobsPath:       filepath.Join(dir, "blobs.json"),
		AttachmentsPath: filepath.Join(dir, "attachments.json"),
		OptionsPath:     filepath.Join(dir, "options.json"),
	})
	ctx := context.Background()
	if _, err := store.ImportTree(ctx, repo, strings.NewReader(uiTree)); err != nil {
		t.Fatalf("import: %v", err)
	}
	bus := events.NewBus(nil)
	inbox := NewInbox()
	cache := notecache.New(repo.Notes(), notecache.WithContent(repo.Blobs(), repo.Attachments()), notecache.WithBus(bus))
	opts := options.New(repo.Options(), nil, nil)
	services := &notecontext.Services{
		Notes:    cache,
		Resolver: notepath.NewResolver(cache, nil, nil),
		Access:   hoisting.NewChecker(cache, inbox, nil),
		Options:  opts,
		Bus:      bus,
	}
	manager := tabs.New(services, opts, tabs.WithUpdateInterval(time.Hour))
	if err := manager.LoadTabs(ctx, ""); err != nil {
		t.Fatalf("load tabs: %v", err)
	}
	model := NewModel(ctx, Deps{
		Tabs:  manager,
		Notes: cache,
		Bus:   bus,
		Inbox: inbox,
		UI:    config.DefaultUIConfig(),
	})
	t.Cleanup(func() {
		model.Close()
		_ = manager.Close(context.Background())
	})
	model.resize(120, 30)
	f := &uiFixture{model: model, tabs: manager, bus: bus, inbox: inbox}
	f.run(t, model.refresh())
	return f
}

// run executes cmd and feeds the resulting action and snapshot messages back
// into the model until nothing is left to do.
func (f *uiFixture) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 10 {
			t.Fatalf("command chain did not settle")
		}
		msg := cmd()
		switch msg.(type) {
		case actionDoneMsg, snapshotMsg, recentNotesMsg:
		default:
			t.Fatalf("unexpected message %T", msg)
		}
		_, cmd = f.model.Update(msg)
	}
}

func (f *uiFixture) press(t *testing.T, key string) {
	t.Helper()
	f.run(t, f.model.handleKey(keyMsg(key)))
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func childTitles(snap viewSnapshot) []string {
	out := make([]string, 0, len(snap.children))
	for _, child := range snap.children {
		out = append(out, child.title)
	}
	return out
}

func TestRootSnapshotListsVisibleChildren(t *testing.T) {
	f := newUIFixture(t)
	snap := f.model.snapshot
	if snap.notePath != types.RootNoteID {
		t.Fatalf("expected root, got %q", snap.notePath)
	}
	if got := strings.Join(childTitles(snap), ","); got != "Projects,Journal" {
		t.Fatalf("unexpected children %q", got)
	}
	if len(snap.tabs) != 1 || !snap.tabs[0].active {
		t.Fatalf("expected one active tab, got %+v", snap.tabs)
	}
}

func TestBrowseIntoChildAndBack(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	snap := f.model.snapshot
	if snap.notePath != "root/projects" {
		t.Fatalf("expected projects, got %q", snap.notePath)
	}
	if snap.headings != 2 {
		t.Fatalf("expected the table of contents to be published, got %d headings", snap.headings)
	}
	if got := strings.Join(snap.breadcrumb, "/"); got != "Projects" {
		t.Fatalf("unexpected breadcrumb %q", got)
	}

	f.press(t, "j")
	f.press(t, "enter")
	if f.model.snapshot.notePath != "root/projects/beta" || f.model.snapshot.symbols != 2 {
		t.Fatalf("expected beta with its outline, got %q (%d symbols)", f.model.snapshot.notePath, f.model.snapshot.symbols)
	}

	f.press(t, "backspace")
	if f.model.snapshot.notePath != "root/projects" {
		t.Fatalf("expected to be back on projects, got %q", f.model.snapshot.notePath)
	}
}

func TestTabKeys(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "t")
	if len(f.model.snapshot.tabs) != 2 {
		t.Fatalf("expected two tabs, got %d", len(f.model.snapshot.tabs))
	}
	if f.model.snapshot.notePath != "root/projects" {
		t.Fatalf("new tab should show the selected child, got %q", f.model.snapshot.notePath)
	}

	f.press(t, "1")
	if f.model.snapshot.notePath != types.RootNoteID {
		t.Fatalf("expected first tab, got %q", f.model.snapshot.notePath)
	}

	f.press(t, "w")
	if len(f.model.snapshot.tabs) != 1 {
		t.Fatalf("expected one tab after closing, got %d", len(f.model.snapshot.tabs))
	}
	f.press(t, "T")
	if len(f.model.snapshot.tabs) != 2 {
		t.Fatalf("expected the closed tab back, got %d", len(f.model.snapshot.tabs))
	}
}

func TestSplitShowsInTabStrip(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "s")
	if len(f.model.snapshot.tabs) != 1 || f.model.snapshot.tabs[0].splits != 1 {
		t.Fatalf("expected one tab with a split, got %+v", f.model.snapshot.tabs)
	}
	if !strings.Contains(f.model.tabLine(), "+1") {
		t.Fatalf("tab line should show the split count: %q", f.model.tabLine())
	}
}

func TestHoistAndUnhoist(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	f.press(t, "H")
	if f.model.snapshot.hoistedNoteID != "projects" || f.model.snapshot.hoistedTitle != "Projects" {
		t.Fatalf("expected projects hoisted, got %q", f.model.snapshot.hoistedNoteID)
	}
	if !strings.Contains(f.model.headerLine(), "hoisted: Projects") {
		t.Fatalf("header should show hoisting: %q", f.model.headerLine())
	}
	f.press(t, "U")
	if f.model.snapshot.hoistedNoteID != types.RootNoteID {
		t.Fatalf("expected unhoisted, got %q", f.model.snapshot.hoistedNoteID)
	}
}

func TestHoistingPromptIsAnsweredByTheUser(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	f.press(t, "H")

	done := make(chan tea.Msg, 1)
	cmd := f.model.navigateCmd("root/journal", types.ViewScope{})
	go func() { done <- cmd() }()

	request := f.inbox.wait()()
	for {
		if _, ok := request.(confirmRequestMsg); ok {
			break
		}
		request = f.inbox.wait()()
	}
	f.model.Update(request)
	if f.model.mode != uiModeConfirm || !strings.Contains(f.model.body(), "unhoist") {
		t.Fatalf("expected the confirmation to be shown")
	}
	f.model.handleKey(keyMsg("y"))

	select {
	case msg := <-done:
		f.run(t, func() tea.Msg { return msg })
	case <-time.After(2 * time.Second):
		t.Fatalf("navigation did not finish after confirming")
	}
	if f.model.snapshot.notePath != "root/journal" || f.model.snapshot.hoistedNoteID != types.RootNoteID {
		t.Fatalf("expected journal unhoisted, got %q hoisted %q", f.model.snapshot.notePath, f.model.snapshot.hoistedNoteID)
	}
}

func TestToggleSourceView(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	f.press(t, "v")
	snap := f.model.snapshot
	if snap.viewMode != types.ViewModeSource || !snap.readOnly {
		t.Fatalf("source view should be read-only, got mode %q read-only %v", snap.viewMode, snap.readOnly)
	}
	if !strings.Contains(f.model.viewport.View(), "# Projects") {
		t.Fatalf("source view should show raw markdown")
	}
	f.press(t, "v")
	if f.model.snapshot.viewMode != types.ViewModeDefault {
		t.Fatalf("expected default view again, got %q", f.model.snapshot.viewMode)
	}
}

func TestToggleTableOfContents(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	if f.model.snapshot.headings != 2 {
		t.Fatalf("expected 2 headings, got %d", f.model.snapshot.headings)
	}
	f.press(t, "o")
	active := f.tabs.ActiveContext()
	if !active.ViewScope().TOCTemporarilyHidden || active.HasContextData(notecontext.DataTableOfContents) {
		t.Fatalf("hiding should drop the table of contents")
	}
	if f.model.snapshot.headings != 0 {
		t.Fatalf("expected no headings while hidden, got %d", f.model.snapshot.headings)
	}
	f.press(t, "o")
	if f.model.snapshot.headings != 2 {
		t.Fatalf("expected headings back, got %d", f.model.snapshot.headings)
	}
}

func TestGotoPrompt(t *testing.T) {
	f := newUIFixture(t)
	// Focusing the prompt returns a cursor blink command; it is not needed here.
	f.model.handleKey(keyMsg("g"))
	if f.model.mode != uiModeGoto {
		t.Fatalf("expected goto mode")
	}
	f.model.gotoInput.SetValue("alpha")
	f.press(t, "enter")
	if f.model.mode != uiModeNormal || f.model.snapshot.notePath != "root/projects/alpha" {
		t.Fatalf("expected alpha, got %q", f.model.snapshot.notePath)
	}
}

func TestContentElementWidgetQuery(t *testing.T) {
	f := newUIFixture(t)
	f.press(t, "enter")
	active := f.tabs.ActiveContext()
	widget, err := active.ContentElement(context.Background())
	if err != nil {
		t.Fatalf("content element: %v", err)
	}
	want, ok := f.model.content.get(active.ID())
	if !ok || want == "" {
		t.Fatalf("expected rendered content for %s", active.ID())
	}
	if rendered, _ := widget.(string); rendered != want {
		t.Fatalf("expected the rendered content, got %v", widget)
	}
}

func TestViewRendersAllRegions(t *testing.T) {
	f := newUIFixture(t)
	view := f.model.View()
	for _, want := range []string{"1 root", "Projects", "Journal", "enter open"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}
}
