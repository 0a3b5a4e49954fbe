package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notenav/internal/config"
	"notenav/internal/events"
	"notenav/internal/logging"
	"notenav/internal/notecache"
	"notenav/internal/notepath"
	"notenav/internal/tabs"
	"notenav/internal/types"
)

const (
	minListWidth      = 20
	minViewportWidth  = 20
	minContentHeight  = 4
	chromeHeight      = 6
	screenTree        = "tree"
	screenDetail      = "detail"
	emptyTabHint      = "Empty tab. Press g to go to a note."
	protectedNoteHint = "Protected note. Start a protected session to show it."
)

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeGoto
	uiModeRecent
	uiModeConfirm
)

// RecentNotes lists the most recently visited notes.
type RecentNotes interface {
	List(ctx context.Context, limit int) ([]*types.RecentNote, error)
}

type Deps struct {
	Tabs        *tabs.Manager
	Notes       *notecache.Cache
	Bus         *events.Bus
	Inbox       *Inbox
	Recent      RecentNotes
	Protected   ProtectedSession
	Keybindings *Keybindings
	UI          config.UIConfig
	Logger      logging.Logger
}

type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	tabs        *tabs.Manager
	recent      RecentNotes
	inbox       *Inbox
	logger      logging.Logger
	keybindings *Keybindings
	builder     snapshotBuilder
	content     *contentElements
	detach      func()
	now         func() time.Time

	dark      bool
	mobile    bool
	listWidth int
	width     int
	height    int
	mode      uiMode
	screen    string

	snapshot     viewSnapshot
	snapshotSeq  uint64
	appliedSeq   uint64
	selected     int
	renderedKey  string
	viewport     viewport.Model
	gotoInput    textinput.Model
	spinner      spinner.Model
	busy         int
	confirm      *confirmRequestMsg
	recentNotes  []*types.RecentNote
	recentCursor int

	toastText    string
	toastLevel   toastLevel
	toastUntil   time.Time
	queuedToasts []queuedToast
}

func NewModel(ctx context.Context, deps Deps) *Model {
	ctx, cancel := context.WithCancel(ctx)
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	inbox := deps.Inbox
	if inbox == nil {
		inbox = NewInbox()
	}
	keybindings := deps.Keybindings
	if keybindings == nil {
		keybindings = DefaultKeybindings()
	}
	gotoInput := textinput.New()
	gotoInput.Placeholder = "note path or id"
	gotoInput.Prompt = "go to: "
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &Model{
		ctx:         ctx,
		cancel:      cancel,
		tabs:        deps.Tabs,
		recent:      deps.Recent,
		inbox:       inbox,
		logger:      logging.Component(logger, "ui"),
		keybindings: keybindings,
		builder:     snapshotBuilder{tabs: deps.Tabs, notes: deps.Notes, protected: deps.Protected},
		content:     newContentElements(),
		now:         time.Now,
		dark:        deps.UI.DarkBackground(),
		mobile:      deps.UI.IsMobile(),
		listWidth:   max(minListWidth, deps.UI.ListWidth()),
		screen:      screenTree,
		viewport:    viewport.New(minViewportWidth, minContentHeight),
		gotoInput:   gotoInput,
		spinner:     spin,
	}
	m.detach = inbox.attach(deps.Bus, m.content)
	return m
}

// Run shows the navigator until the user quits.
func Run(ctx context.Context, deps Deps) error {
	model := NewModel(ctx, deps)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Close detaches the model from the bus and cancels running actions.
func (m *Model) Close() {
	m.cancel()
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.inbox.wait(), tickCmd(), m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case snapshotMsg:
		m.applySnapshot(msg)
		return m, nil
	case actionDoneMsg:
		m.busy = max(0, m.busy-1)
		if msg.err != nil {
			m.logger.Warn("ui_action_failed", logging.F("action", msg.action), logging.Err(msg.err))
			m.showErrorToast(msg.action + ": " + msg.err.Error())
		} else if msg.info != "" {
			m.enqueueToast(toastLevelInfo, msg.info)
		}
		return m, m.refresh()
	case refreshRequestMsg:
		return m, tea.Batch(m.refresh(), m.inbox.wait())
	case confirmRequestMsg:
		m.confirm = &msg
		m.mode = uiModeConfirm
		return m, m.inbox.wait()
	case activeScreenMsg:
		m.screen = msg.screen
		return m, m.inbox.wait()
	case recentNotesMsg:
		if msg.err != nil {
			m.showErrorToast("recent notes: " + msg.err.Error())
			return m, nil
		}
		if len(msg.notes) == 0 {
			m.showInfoToast("no recent notes")
			return m, nil
		}
		m.recentNotes = msg.notes
		m.recentCursor = 0
		m.mode = uiModeRecent
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		m.showNextQueuedToast()
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) refresh() tea.Cmd {
	m.snapshotSeq++
	seq := m.snapshotSeq
	build := m.snapshotCmd()
	return func() tea.Msg {
		msg := build().(snapshotMsg)
		msg.seq = seq
		return msg
	}
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	if msg.seq < m.appliedSeq {
		return
	}
	m.appliedSeq = msg.seq
	if msg.err != nil {
		m.logger.Warn("ui_snapshot_failed", logging.Err(msg.err))
		m.showErrorToast(msg.err.Error())
		return
	}
	previousPath := m.snapshot.notePath
	m.snapshot = msg.snapshot
	if previousPath != m.snapshot.notePath {
		m.selected = 0
	}
	if m.selected >= len(m.snapshot.children) {
		m.selected = max(0, len(m.snapshot.children)-1)
	}
	m.content.retain(m.snapshot.contextIDs)
	m.renderedKey = ""
	m.renderContent()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = m.contentWidth()
	m.viewport.Height = max(minContentHeight, height-chromeHeight)
	m.gotoInput.Width = max(10, width-len(m.gotoInput.Prompt)-2)
	m.renderContent()
}

func (m *Model) contentWidth() int {
	if m.mobile {
		return max(minViewportWidth, m.width)
	}
	return max(minViewportWidth, m.width-m.listWidth-1)
}

func (m *Model) selectedChild() (childEntry, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.children) {
		return childEntry{}, false
	}
	return m.snapshot.children[m.selected], true
}

// targetPath is the path actions apply to: the selected child, or the
// current note when it has none.
func (m *Model) targetPath() string {
	if child, ok := m.selectedChild(); ok {
		return child.notePath
	}
	return m.snapshot.notePath
}

func (m *Model) startAction(action string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	m.busy++
	return m.actionCmd(action, fn)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	switch m.mode {
	case uiModeConfirm:
		return m.handleConfirmKey(msg)
	case uiModeGoto:
		return m.handleGotoKey(msg)
	case uiModeRecent:
		return m.handleRecentKey(msg)
	}
	return m.handleBrowseKey(msg)
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	var answer, answered bool
	switch msg.String() {
	case "y", "Y", "enter":
		answer, answered = true, true
	case "n", "N", "esc":
		answer, answered = false, true
	}
	if !answered || m.confirm == nil {
		return nil
	}
	m.confirm.reply <- answer
	m.confirm = nil
	m.mode = uiModeNormal
	return nil
}

func (m *Model) handleGotoKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.exitPrompt()
		return nil
	case "enter":
		target := strings.TrimSpace(m.gotoInput.Value())
		m.exitPrompt()
		if target == "" {
			return nil
		}
		m.busy++
		return m.navigateCmd(target, types.ViewScope{})
	}
	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return cmd
}

func (m *Model) handleRecentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		m.exitPrompt()
	case "up", "k":
		m.recentCursor = max(0, m.recentCursor-1)
	case "down", "j":
		m.recentCursor = min(len(m.recentNotes)-1, m.recentCursor+1)
	case "enter":
		if m.recentCursor < 0 || m.recentCursor >= len(m.recentNotes) {
			return nil
		}
		target := m.recentNotes[m.recentCursor].NotePath
		m.exitPrompt()
		m.busy++
		return m.navigateCmd(target, types.ViewScope{})
	}
	return nil
}

func (m *Model) exitPrompt() {
	m.mode = uiModeNormal
	m.gotoInput.Blur()
	m.gotoInput.SetValue("")
	m.recentNotes = nil
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	key := m.keyString(msg)
	switch key {
	case "q":
		return tea.Quit
	case "k", "up":
		m.selected = max(0, m.selected-1)
		return nil
	case "j", "down":
		m.selected = min(max(0, len(m.snapshot.children)-1), m.selected+1)
		return nil
	case "enter", "l", "right":
		child, ok := m.selectedChild()
		if !ok {
			m.screen = screenDetail
			return nil
		}
		m.busy++
		return m.navigateCmd(child.notePath, types.ViewScope{})
	case "backspace", "h", "left":
		if m.mobile && m.screen == screenDetail {
			m.screen = screenTree
			return nil
		}
		segments := notepath.Segments(m.snapshot.notePath)
		if len(segments) < 2 {
			return nil
		}
		m.busy++
		return m.navigateCmd(strings.Join(segments[:len(segments)-1], "/"), types.ViewScope{})
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case "g":
		m.mode = uiModeGoto
		return m.gotoInput.Focus()
	case "r":
		return m.recentNotesCmd()
	case "y":
		m.copyNotePath()
		return nil
	}
	if cmd := m.handleTabKey(key); cmd != nil {
		return cmd
	}
	return m.handleContextKey(key)
}

func (m *Model) handleTabKey(key string) tea.Cmd {
	manager := m.tabs
	switch key {
	case "t":
		target := m.targetPath()
		return m.startAction("open tab", func(ctx context.Context) (string, error) {
			_, err := manager.OpenTabWithNoteWithHoisting(ctx, target, tabs.OpenOptions{Activate: true})
			return "", err
		})
	case "s":
		target := m.targetPath()
		return m.startAction("split", func(ctx context.Context) (string, error) {
			_, err := manager.OpenSplit(ctx, target)
			return "", err
		})
	case "ctrl+t":
		return m.startAction("new tab", func(ctx context.Context) (string, error) {
			_, err := manager.OpenTabWithNoteWithHoisting(ctx, types.RootNoteID, tabs.OpenOptions{Activate: true})
			return "", err
		})
	case "w":
		ntxID := m.snapshot.ntxID
		return m.startAction("close", func(ctx context.Context) (string, error) {
			removed, err := manager.RemoveNoteContext(ctx, ntxID)
			if err == nil && !removed {
				return "nothing to close", nil
			}
			return "", err
		})
	case "T":
		return m.startAction("reopen", func(ctx context.Context) (string, error) {
			return "", manager.ReopenLastTab(ctx)
		})
	case "]":
		return m.startAction("next tab", func(ctx context.Context) (string, error) {
			return "", manager.ActivateNextTab(ctx)
		})
	case "[":
		return m.startAction("previous tab", func(ctx context.Context) (string, error) {
			return "", manager.ActivatePreviousTab(ctx)
		})
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		idx := int(key[0] - '1')
		if idx >= len(m.snapshot.tabs) {
			return nil
		}
		ntxID := m.snapshot.tabs[idx].ntxID
		return m.startAction("activate tab", func(ctx context.Context) (string, error) {
			return "", manager.ActivateNoteContext(ctx, ntxID, true)
		})
	}
	return nil
}

func (m *Model) handleContextKey(key string) tea.Cmd {
	active := m.tabs.ActiveContext()
	if active == nil {
		return nil
	}
	switch key {
	case "H":
		noteID := notepath.NoteID(m.snapshot.notePath)
		if noteID == "" {
			return nil
		}
		return m.startAction("hoist", func(ctx context.Context) (string, error) {
			return "hoisted " + noteID, active.SetHoistedNoteID(ctx, noteID)
		})
	case "U":
		return m.startAction("unhoist", func(ctx context.Context) (string, error) {
			return "", active.Unhoist(ctx)
		})
	case "e":
		if !m.snapshot.readOnly {
			return nil
		}
		return m.startAction("edit", func(ctx context.Context) (string, error) {
			return "read-only disabled until the next note switch", active.DisableReadOnlyTemporarily(ctx)
		})
	case "o":
		hidden := !active.ViewScope().TOCTemporarilyHidden
		return m.startAction("toc", func(ctx context.Context) (string, error) {
			if hidden {
				return "table of contents hidden", active.SetTOCTemporarilyHidden(ctx, true)
			}
			return "table of contents shown", active.SetTOCTemporarilyHidden(ctx, false)
		})
	case "v", "a":
		mode := types.ViewModeSource
		if key == "a" {
			mode = types.ViewModeAttachments
		}
		scope := active.ViewScope()
		if scope.Normalized().ViewMode == mode {
			mode = types.ViewModeDefault
		}
		scope.ViewMode = mode
		m.busy++
		return m.navigateCmd(m.snapshot.notePath, scope)
	}
	return nil
}

func (m *Model) renderContent() {
	key := fmt.Sprintf("%s|%s|%s|%d|%d", m.snapshot.ntxID, m.snapshot.notePath, m.snapshot.viewMode, m.viewport.Width, len(m.snapshot.content))
	if key == m.renderedKey {
		return
	}
	m.renderedKey = key
	rendered := m.contentText(m.viewport.Width)
	m.viewport.SetContent(rendered)
	m.viewport.GotoTop()
	if m.snapshot.ntxID != "" {
		m.content.set(m.snapshot.ntxID, rendered)
	}
}

func (m *Model) contentText(width int) string {
	snap := m.snapshot
	switch {
	case snap.notePath == "":
		return placeholderStyle.Render(emptyTabHint)
	case snap.protected:
		return placeholderStyle.Render(protectedNoteHint)
	case snap.viewMode == types.ViewModeAttachments:
		if len(snap.attachments) == 0 {
			return placeholderStyle.Render("No attachments.")
		}
		lines := make([]string, 0, len(snap.attachments))
		for _, title := range snap.attachments {
			lines = append(lines, "• "+title)
		}
		return strings.Join(lines, "\n")
	case snap.viewMode == types.ViewModeSource:
		return snap.content
	}
	out := renderMarkdown(noteMarkdown(snap.noteType, snap.mime, snap.content), width, m.dark)
	if snap.hasNoteList && len(snap.children) > 0 {
		items := make([]string, 0, len(snap.children))
		for _, child := range snap.children {
			items = append(items, "- "+escapeListItem(child.title))
		}
		list := renderMarkdown(strings.Join(items, "\n"), width, m.dark)
		if out == "" {
			return list
		}
		out += "\n\n" + list
	}
	return out
}

func escapeListItem(text string) string {
	replacer := strings.NewReplacer("`", "\\`", "*", "\\*", "_", "\\_", "[", "\\[")
	return replacer.Replace(text)
}

func (m *Model) View() string {
	if m.width <= 0 {
		return ""
	}
	lines := []string{
		m.tabLine(),
		m.headerLine(),
		dividerStyle.Render(strings.Repeat("─", m.width)),
		m.body(),
		dividerStyle.Render(strings.Repeat("─", m.width)),
		m.statusLine(),
		m.hotkeyLine(m.width),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) tabLine() string {
	parts := make([]string, 0, len(m.snapshot.tabs))
	for i, tab := range m.snapshot.tabs {
		label := fmt.Sprintf("%d %s", i+1, truncateToWidth(tab.title, 24))
		if tab.splits > 0 {
			label += fmt.Sprintf(" +%d", tab.splits)
		}
		style := tabStyle
		if tab.active {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if m.busy > 0 {
		line += " " + m.spinner.View()
	}
	return line
}

func (m *Model) headerLine() string {
	snap := m.snapshot
	badges := make([]string, 0, 4)
	if snap.hoistedNoteID != "" && snap.hoistedNoteID != types.RootNoteID {
		badges = append(badges, hoistedStyle.Render(" hoisted: "+snap.hoistedTitle+" "))
	}
	if snap.readOnly {
		badges = append(badges, readOnlyStyle.Render(" read-only "))
	}
	if snap.viewMode != "" && snap.viewMode != types.ViewModeDefault {
		badges = append(badges, viewModeStyle.Render(" "+string(snap.viewMode)+" "))
	}
	if snap.headings > 0 {
		badges = append(badges, statusStyle.Render(fmt.Sprintf("%d headings", snap.headings)))
	}
	if snap.symbols > 0 {
		badges = append(badges, statusStyle.Render(fmt.Sprintf("%d symbols", snap.symbols)))
	}
	badgeText := strings.Join(badges, " ")
	available := max(0, m.width-lipgloss.Width(badgeText)-1)
	crumb := headerStyle.Render(truncateToWidth(strings.Join(snap.breadcrumb, notepath.TitleSeparator), available))
	return crumb + " " + badgeText
}

func (m *Model) body() string {
	height := m.viewport.Height
	if m.mode == uiModeConfirm && m.confirm != nil {
		box := confirmStyle.Width(max(20, min(m.width-4, 72))).Render(m.confirm.message)
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
	}
	if m.mode == uiModeRecent {
		return padLines(m.recentLines(height), m.width)
	}
	if m.mobile {
		if m.screen == screenDetail {
			return m.viewport.View()
		}
		return padLines(m.listLines(m.width, height), m.width)
	}
	list := padLines(m.listLines(m.listWidth, height), m.listWidth)
	separator := dividerStyle.Render(strings.TrimRight(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, separator, m.viewport.View())
}

func (m *Model) listLines(width, height int) []string {
	lines := make([]string, 0, height)
	if len(m.snapshot.children) == 0 {
		lines = append(lines, placeholderStyle.Render(truncateToWidth("no child notes", width)))
	}
	start := 0
	if m.selected >= height {
		start = m.selected - height + 1
	}
	for i := start; i < len(m.snapshot.children) && len(lines) < height; i++ {
		child := m.snapshot.children[i]
		marker := "  "
		style := noteStyle
		if child.folder {
			marker = "▸ "
			style = folderStyle
		}
		text := truncateToWidth(marker+child.title, width)
		if i == m.selected {
			style = selectedStyle
		}
		lines = append(lines, style.Render(text))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) recentLines(height int) []string {
	lines := []string{headerStyle.Render("Recent notes")}
	for i, note := range m.recentNotes {
		if len(lines) >= height {
			break
		}
		text := truncateToWidth(note.NotePath+"  "+note.CreatedAt.Format("2006-01-02 15:04"), m.width)
		if i == m.recentCursor {
			text = selectedStyle.Render(text)
		}
		lines = append(lines, text)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) statusLine() string {
	if m.mode == uiModeGoto {
		return m.gotoInput.View()
	}
	if toast := m.toastLine(m.width); toast != "" {
		return toast
	}
	return statusStyle.Render(truncateToWidth(m.snapshot.notePath, m.width))
}
