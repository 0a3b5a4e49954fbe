package tabs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"notenav/internal/events"
	"notenav/internal/logging"
	"notenav/internal/notecache"
	"notenav/internal/notecontext"
	"notenav/internal/notepath"
	"notenav/internal/options"
	"notenav/internal/spacedupdate"
	"notenav/internal/types"
)

var ErrContextNotFound = errors.New("note context not found")

// Options is where the open contexts are persisted.
type Options interface {
	Is(name string) bool
	Get(name string) string
	GetJSON(name string, v any) error
	SetJSON(ctx context.Context, name string, v any) error
}

type notePreloader interface {
	GetNotes(ctx context.Context, ids []string) ([]*notecache.Note, error)
}

type ActiveContextChangedPayload struct {
	NoteContext *notecontext.NoteContext
}

type NewNoteContextCreatedPayload struct {
	NoteContext *notecontext.NoteContext
}

// NoteContextsRemovedPayload is the payload of beforeNoteContextRemove and
// noteContextRemoved.
type NoteContextsRemovedPayload struct {
	NtxIDs []string
}

type TabReorderPayload struct {
	NtxIDsInOrder []string
}

// OpenOptions configures a context opened by the manager.
type OpenOptions struct {
	Activate      bool
	NtxID         string
	MainNtxID     string
	HoistedNoteID string
	ViewScope     types.ViewScope
}

type closedTab struct {
	states   []types.NoteContextState
	position int
}

// Manager owns the open note contexts of a window: tabs and their splits,
// which one is active, and their persistence in the openNoteContexts option.
type Manager struct {
	services *notecontext.Services
	options  Options
	bus      *events.Bus
	logger   logging.Logger
	update   *spacedupdate.SpacedUpdate

	opMu sync.Mutex

	mu             sync.RWMutex
	contexts       []*notecontext.NoteContext
	activeNtxID    string
	recentlyClosed []closedTab

	unsubscribe []func()
}

type Option func(*managerConfig)

type managerConfig struct {
	updateInterval time.Duration
}

func WithUpdateInterval(interval time.Duration) Option {
	return func(cfg *managerConfig) {
		cfg.updateInterval = interval
	}
}

// New builds a manager and registers it as the collection of services.
func New(services *notecontext.Services, opts Options, configure ...Option) *Manager {
	cfg := managerConfig{updateInterval: spacedupdate.DefaultInterval}
	for _, fn := range configure {
		if fn != nil {
			fn(&cfg)
		}
	}
	logger := services.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	m := &Manager{
		services: services,
		options:  opts,
		bus:      services.Bus,
		logger:   logging.Component(logger, "tabs"),
	}
	services.Collection = m
	m.update = spacedupdate.New(m.saveTabs,
		spacedupdate.WithInterval(cfg.updateInterval),
		spacedupdate.WithLogger(m.logger),
	)
	schedule := func(context.Context, events.Event) error {
		m.update.ScheduleUpdate()
		return nil
	}
	m.unsubscribe = append(m.unsubscribe,
		m.bus.Subscribe(events.NoteSwitched, schedule),
		m.bus.Subscribe(events.HoistedNoteChanged, schedule),
	)
	return m
}

func (m *Manager) saveTabs(ctx context.Context) error {
	if m.options == nil || m.options.Is(options.DatabaseReadonly) {
		return nil
	}
	states := make([]types.NoteContextState, 0)
	for _, c := range m.NoteContexts() {
		if state, ok := c.State(); ok {
			states = append(states, state)
		}
	}
	return m.options.SetJSON(ctx, options.OpenNoteContexts, states)
}

// Flush persists pending changes to the open contexts right away.
func (m *Manager) Flush(ctx context.Context) error {
	return m.update.UpdateNowIfNecessary(ctx)
}

func (m *Manager) IsAllSaved() bool {
	return m.update.IsAllSaved()
}

// Close flushes pending changes and detaches every context.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	m.update.Close()
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
	for _, c := range m.NoteContexts() {
		c.Close()
	}
	return err
}

func (m *Manager) NoteContexts() []*notecontext.NoteContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*notecontext.NoteContext(nil), m.contexts...)
}

func (m *Manager) MainNoteContexts() []*notecontext.NoteContext {
	out := make([]*notecontext.NoteContext, 0)
	for _, c := range m.NoteContexts() {
		if c.IsMainContext() {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) NoteContextByID(ntxID string) (*notecontext.NoteContext, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.contexts {
		if c.ID() == ntxID {
			return c, true
		}
	}
	return nil, false
}

func (m *Manager) ActiveNtxID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeNtxID
}

func (m *Manager) ActiveContext() *notecontext.NoteContext {
	c, _ := m.NoteContextByID(m.ActiveNtxID())
	return c
}

func (m *Manager) ActiveMainContext() *notecontext.NoteContext {
	c := m.ActiveContext()
	if c == nil {
		return nil
	}
	return c.MainContext()
}

func (m *Manager) ActiveContextNotePath() string {
	if c := m.ActiveContext(); c != nil {
		return c.NotePath()
	}
	return ""
}

func (m *Manager) ActiveContextNote() *notecache.Note {
	if c := m.ActiveContext(); c != nil {
		return c.Note()
	}
	return nil
}

// LoadTabs restores the contexts saved in openNoteContexts. Contexts whose
// note no longer exists are dropped and missing hoisted notes fall back to
// root. When nothing can be restored a single tab on startPath (or root) is
// opened. A non-empty startPath is opened and activated in any case.
func (m *Manager) LoadTabs(ctx context.Context, startPath string) error {
	if err := m.loadTabs(ctx, startPath); err != nil {
		fields := []logging.Field{logging.Err(err)}
		if m.options != nil {
			fields = append(fields, logging.F("open_note_contexts", m.options.Get(options.OpenNoteContexts)))
		}
		m.logger.Error("note_contexts_load_failed", fields...)
		_, openErr := m.OpenEmptyTab(ctx, OpenOptions{})
		return errors.Join(err, openErr)
	}
	return nil
}

func (m *Manager) loadTabs(ctx context.Context, startPath string) error {
	var saved []types.NoteContextState
	if m.options != nil {
		if err := m.options.GetJSON(options.OpenNoteContexts, &saved); err != nil && !errors.Is(err, options.ErrUnknownOption) {
			return err
		}
	}

	ids := make([]string, 0, len(saved)*2)
	for _, state := range saved {
		ids = append(ids, notepath.NoteID(state.NotePath), state.HoistedNoteID)
	}
	if err := m.preload(ctx, ids); err != nil {
		return err
	}

	restored := make([]types.NoteContextState, 0, len(saved))
	for _, state := range saved {
		noteID := notepath.NoteID(state.NotePath)
		if noteID == "" || m.services.Notes.NoteFromCache(noteID) == nil {
			continue
		}
		if state.HoistedNoteID == "" || m.services.Notes.NoteFromCache(state.HoistedNoteID) == nil {
			state.HoistedNoteID = types.RootNoteID
		}
		restored = append(restored, state)
	}

	startNtxID := ""
	if len(restored) == 0 {
		startNtxID = notecontext.GenerateNtxID()
		notePath := startPath
		if notePath == "" {
			notePath = types.RootNoteID
		}
		restored = append(restored, types.NoteContextState{
			NtxID:         startNtxID,
			NotePath:      notePath,
			HoistedNoteID: types.RootNoteID,
			Active:        true,
		})
	} else if !anyActive(restored) {
		restored[0].Active = true
	}

	err := m.update.AllowUpdateWithoutChange(ctx, func(ctx context.Context) error {
		for _, state := range restored {
			_, err := m.OpenContextWithNote(ctx, state.NotePath, OpenOptions{
				Activate:      state.Active,
				NtxID:         state.NtxID,
				MainNtxID:     state.MainNtxID,
				HoistedNoteID: state.HoistedNoteID,
				ViewScope:     state.ViewScope,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	// The restored tabs match what is stored.
	m.update.ResetUpdateTimer()

	if startPath != "" {
		return m.SwitchToNoteContext(ctx, startNtxID, startPath, types.ViewScope{}, "")
	}
	return nil
}

func (m *Manager) preload(ctx context.Context, ids []string) error {
	preloader, ok := m.services.Notes.(notePreloader)
	if !ok {
		for _, id := range ids {
			if _, err := m.services.Notes.GetNote(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := preloader.GetNotes(ctx, ids)
	return err
}

func anyActive(states []types.NoteContextState) bool {
	for _, state := range states {
		if state.Active {
			return true
		}
	}
	return false
}

// SwitchToNoteContext activates ntxID, opening a new tab when it does not
// exist, and navigates it to notePath.
func (m *Manager) SwitchToNoteContext(ctx context.Context, ntxID, notePath string, viewScope types.ViewScope, hoistedNoteID string) error {
	c, ok := m.NoteContextByID(ntxID)
	if !ok {
		var err error
		if c, err = m.OpenEmptyTab(ctx, OpenOptions{}); err != nil {
			return err
		}
	}
	if err := m.ActivateNoteContext(ctx, c.ID(), true); err != nil {
		return err
	}
	if hoistedNoteID != "" {
		if err := c.SetHoistedNoteID(ctx, hoistedNoteID); err != nil {
			return err
		}
	}
	if notePath != "" {
		return c.SetNote(ctx, notePath, notecontext.WithViewScope(viewScope))
	}
	return nil
}

// OpenEmptyTab adds an empty context. Asking for an id that is already open
// returns that context, re-hoisted.
func (m *Manager) OpenEmptyTab(ctx context.Context, opts OpenOptions) (*notecontext.NoteContext, error) {
	hoistedNoteID := opts.HoistedNoteID
	if hoistedNoteID == "" {
		hoistedNoteID = types.RootNoteID
	}
	if existing, ok := m.NoteContextByID(opts.NtxID); ok && opts.NtxID != "" {
		return existing, existing.SetHoistedNoteID(ctx, hoistedNoteID)
	}
	ntxID := opts.NtxID
	for ntxID == "" {
		candidate := notecontext.GenerateNtxID()
		if _, taken := m.NoteContextByID(candidate); !taken {
			ntxID = candidate
		}
	}
	c := notecontext.New(m.services,
		notecontext.WithID(ntxID),
		notecontext.WithHoistedNoteID(hoistedNoteID),
		notecontext.WithMainNtxID(opts.MainNtxID),
	)

	m.mu.Lock()
	m.contexts = append(m.contexts, c)
	m.mu.Unlock()

	err := c.SetEmpty(ctx)
	return c, errors.Join(err, m.bus.TriggerEvent(ctx, events.NewNoteContextCreated, NewNoteContextCreatedPayload{NoteContext: c}))
}

func (m *Manager) OpenAndActivateEmptyTab(ctx context.Context) (*notecontext.NoteContext, error) {
	c, err := m.OpenEmptyTab(ctx, OpenOptions{})
	if err != nil {
		return c, err
	}
	if err := m.ActivateNoteContext(ctx, c.ID(), true); err != nil {
		return c, err
	}
	return c, c.SetEmpty(ctx)
}

// OpenContextWithNote opens a context on notePath. When activated, the
// switch is announced with noteSwitchedAndActivated instead of noteSwitched.
func (m *Manager) OpenContextWithNote(ctx context.Context, notePath string, opts OpenOptions) (*notecontext.NoteContext, error) {
	c, err := m.OpenEmptyTab(ctx, opts)
	if err != nil {
		return c, err
	}
	if notePath != "" {
		setOpts := []notecontext.SetNoteOption{notecontext.WithViewScope(opts.ViewScope)}
		if opts.Activate {
			setOpts = append(setOpts, notecontext.WithoutSwitchEvent())
		}
		if err := c.SetNote(ctx, notePath, setOpts...); err != nil {
			return c, err
		}
	}
	if opts.Activate && c.NotePath() != "" {
		if err := m.ActivateNoteContext(ctx, c.ID(), false); err != nil {
			return c, err
		}
		payload := notecontext.NoteSwitchedPayload{NoteContext: c, NotePath: c.NotePath()}
		if err := m.bus.TriggerEvent(ctx, events.NoteSwitchedAndActivated, payload); err != nil {
			return c, err
		}
	}
	return c, nil
}

// OpenInNewTab opens notePath in a new tab hoisted like the active one unless
// hoistedNoteID is given.
func (m *Manager) OpenInNewTab(ctx context.Context, notePath, hoistedNoteID string, activate bool) (*notecontext.NoteContext, error) {
	if hoistedNoteID == "" {
		if active := m.ActiveContext(); active != nil {
			hoistedNoteID = active.HoistedNoteID()
		}
	}
	return m.OpenContextWithNote(ctx, notePath, OpenOptions{Activate: activate, HoistedNoteID: hoistedNoteID})
}

func (m *Manager) OpenInSameTab(ctx context.Context, notePath, hoistedNoteID string) error {
	active := m.ActiveContext()
	if active == nil {
		return nil
	}
	if hoistedNoteID == "" {
		hoistedNoteID = active.HoistedNoteID()
	}
	if err := active.SetHoistedNoteID(ctx, hoistedNoteID); err != nil {
		return err
	}
	return active.SetNote(ctx, notePath)
}

// OpenTabWithNoteWithHoisting keeps the active hoisting for the new tab when
// notePath lies inside it, and opens the tab unhoisted otherwise.
func (m *Manager) OpenTabWithNoteWithHoisting(ctx context.Context, notePath string, opts OpenOptions) (*notecontext.NoteContext, error) {
	opts.HoistedNoteID = types.RootNoteID
	if active := m.ActiveContext(); active != nil && m.services.Resolver != nil {
		hoisted := active.HoistedNoteID()
		resolved, err := m.services.Resolver.ResolveString(ctx, notePath, hoisted)
		if err != nil {
			m.logger.Warn("resolve_for_hoisting_failed", logging.F("note_path", notePath), logging.Err(err))
		}
		segments := strings.Split(resolved, "/")
		if resolved != "" && (containsID(segments, hoisted) || containsID(segments, types.HiddenNoteID)) {
			opts.HoistedNoteID = hoisted
		}
	}
	return m.OpenContextWithNote(ctx, notePath, opts)
}

// ActivateOrOpenNote activates the first context showing noteID, or opens
// a new active tab with it.
func (m *Manager) ActivateOrOpenNote(ctx context.Context, noteID string) error {
	for _, c := range m.NoteContexts() {
		if c.NoteID() == noteID {
			return m.ActivateNoteContext(ctx, c.ID(), true)
		}
	}
	_, err := m.OpenContextWithNote(ctx, noteID, OpenOptions{Activate: true})
	return err
}

func (m *Manager) ActivateNoteContext(ctx context.Context, ntxID string, triggerEvent bool) error {
	if ntxID == "" {
		m.logger.Error("note_context_activate_failed", logging.F("reason", "missing ntx id"))
		return nil
	}
	c, ok := m.NoteContextByID(ntxID)
	if !ok {
		return ErrContextNotFound
	}
	m.mu.Lock()
	if m.activeNtxID == ntxID {
		m.mu.Unlock()
		return nil
	}
	m.activeNtxID = ntxID
	m.mu.Unlock()

	var err error
	if triggerEvent {
		err = m.bus.TriggerEvent(ctx, events.ActiveContextChanged, ActiveContextChangedPayload{NoteContext: c})
	}
	m.update.ScheduleUpdate()
	return err
}

func (m *Manager) ActivateNextTab(ctx context.Context) error {
	return m.activateRelativeTab(ctx, 1)
}

func (m *Manager) ActivatePreviousTab(ctx context.Context) error {
	return m.activateRelativeTab(ctx, -1)
}

func (m *Manager) activateRelativeTab(ctx context.Context, step int) error {
	activeMain := m.ActiveMainContext()
	if activeMain == nil {
		return nil
	}
	mains := m.MainNoteContexts()
	idx := indexOf(mains, activeMain.ID())
	if idx < 0 {
		return nil
	}
	next := (idx + step + len(mains)) % len(mains)
	return m.ActivateNoteContext(ctx, mains[next].ID(), true)
}

// RemoveNoteContext closes a context together with its splits. Closing the
// last tab replaces it with an empty one; closing the last tab while it is
// already empty does nothing. It reports whether anything was removed.
func (m *Manager) RemoveNoteContext(ctx context.Context, ntxID string) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.removeNoteContext(ctx, ntxID)
}

func (m *Manager) removeNoteContext(ctx context.Context, ntxID string) (bool, error) {
	c, ok := m.NoteContextByID(ntxID)
	if !ok {
		return false, nil
	}
	if c.IsMainContext() && len(m.MainNoteContexts()) == 1 {
		if c.IsEmpty() {
			return false, nil
		}
		if _, err := m.OpenEmptyTab(ctx, OpenOptions{}); err != nil {
			return false, err
		}
	}

	toRemove := c.SubContexts()
	ids := contextIDs(toRemove)
	if err := m.bus.TriggerEvent(ctx, events.BeforeNoteContextRemove, NoteContextsRemovedPayload{NtxIDs: ids}); err != nil {
		m.logger.Warn("before_note_context_remove_failed", logging.Err(err))
	}

	var err error
	switch {
	case !c.IsMainContext():
		siblings := c.MainContext().SubContexts()
		idx := indexOf(siblings, c.ID())
		next := idx + 1
		if idx == len(siblings)-1 {
			next = idx - 1
		}
		if next >= 0 && next < len(siblings) {
			err = m.ActivateNoteContext(ctx, siblings[next].ID(), true)
		}
	case len(m.MainNoteContexts()) <= 1:
		_, err = m.OpenAndActivateEmptyTab(ctx)
	case containsID(ids, m.ActiveNtxID()):
		mains := m.MainNoteContexts()
		if indexOf(mains, c.ID()) == len(mains)-1 {
			err = m.ActivatePreviousTab(ctx)
		} else {
			err = m.ActivateNextTab(ctx)
		}
	}

	m.removeNoteContexts(ctx, toRemove)
	return true, err
}

func (m *Manager) removeNoteContexts(ctx context.Context, toRemove []*notecontext.NoteContext) {
	ids := contextIDs(toRemove)
	closed := closedTab{states: make([]types.NoteContextState, 0, len(toRemove))}
	for _, c := range toRemove {
		state, _ := c.State()
		state.Active = false
		closed.states = append(closed.states, state)
	}

	m.mu.Lock()
	closed.position = -1
	kept := m.contexts[:0:0]
	for i, c := range m.contexts {
		if containsID(ids, c.ID()) {
			if closed.position < 0 {
				closed.position = i
			}
			continue
		}
		kept = append(kept, c)
	}
	m.contexts = kept
	if !(len(toRemove) == 1 && toRemove[0].IsEmpty()) {
		m.recentlyClosed = append(m.recentlyClosed, closed)
	}
	m.mu.Unlock()

	for _, c := range toRemove {
		c.Close()
	}
	if err := m.bus.TriggerEvent(ctx, events.NoteContextRemoved, NoteContextsRemovedPayload{NtxIDs: ids}); err != nil {
		m.logger.Warn("note_context_removed_listener_failed", logging.Err(err))
	}
	m.update.ScheduleUpdate()
}

// ReopenLastTab restores the most recently closed tab or split at its old
// position and activates it.
func (m *Manager) ReopenLastTab(ctx context.Context) error {
	m.opMu.Lock()
	m.mu.Lock()
	if len(m.recentlyClosed) == 0 {
		m.mu.Unlock()
		m.opMu.Unlock()
		return nil
	}
	last := m.recentlyClosed[len(m.recentlyClosed)-1]
	m.recentlyClosed = m.recentlyClosed[:len(m.recentlyClosed)-1]
	var replaceEmpty string
	if len(m.contexts) == 1 && m.contexts[0].IsEmpty() {
		replaceEmpty = m.contexts[0].ID()
	}
	m.mu.Unlock()

	reopened := make([]*notecontext.NoteContext, 0, len(last.states))
	var err error
	for _, state := range last.states {
		c, openErr := m.OpenContextWithNote(ctx, state.NotePath, OpenOptions{
			NtxID:         state.NtxID,
			MainNtxID:     state.MainNtxID,
			HoistedNoteID: state.HoistedNoteID,
			ViewScope:     state.ViewScope,
		})
		err = errors.Join(err, openErr)
		if c != nil {
			reopened = append(reopened, c)
		}
	}
	m.moveToPosition(contextIDs(reopened), last.position)

	var activate *notecontext.NoteContext
	for _, c := range reopened {
		if len(reopened) == 1 || c.IsMainContext() {
			activate = c
			break
		}
	}
	if activate != nil {
		err = errors.Join(err, m.ActivateNoteContext(ctx, activate.ID(), true))
		payload := notecontext.NoteSwitchedPayload{NoteContext: activate, NotePath: activate.NotePath()}
		err = errors.Join(err, m.bus.TriggerEvent(ctx, events.NoteSwitched, payload))
	}
	m.opMu.Unlock()

	if replaceEmpty != "" {
		_, removeErr := m.RemoveNoteContext(ctx, replaceEmpty)
		err = errors.Join(err, removeErr)
	}
	return err
}

func (m *Manager) moveToPosition(ids []string, position int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	moved := make([]*notecontext.NoteContext, 0, len(ids))
	rest := make([]*notecontext.NoteContext, 0, len(m.contexts))
	for _, c := range m.contexts {
		if containsID(ids, c.ID()) {
			moved = append(moved, c)
		} else {
			rest = append(rest, c)
		}
	}
	if position < 0 || position > len(rest) {
		position = len(rest)
	}
	out := make([]*notecontext.NoteContext, 0, len(m.contexts))
	out = append(out, rest[:position]...)
	out = append(out, moved...)
	out = append(out, rest[position:]...)
	m.contexts = out
}

// ReorderTabs orders the tabs as given; splits follow their tab.
func (m *Manager) ReorderTabs(ctx context.Context, ntxIDsInOrder []string) error {
	order := map[string]int{}
	i := 0
	for _, ntxID := range ntxIDsInOrder {
		c, ok := m.NoteContextByID(ntxID)
		if !ok {
			return ErrContextNotFound
		}
		for _, sub := range c.SubContexts() {
			order[sub.ID()] = i
			i++
		}
	}
	m.mu.Lock()
	sort.SliceStable(m.contexts, func(a, b int) bool {
		return order[m.contexts[a].ID()] < order[m.contexts[b].ID()]
	})
	m.mu.Unlock()
	m.update.ScheduleUpdate()
	return m.bus.TriggerEvent(ctx, events.TabReorder, TabReorderPayload{NtxIDsInOrder: ntxIDsInOrder})
}

func (m *Manager) CloseActiveTab(ctx context.Context) error {
	_, err := m.RemoveNoteContext(ctx, m.ActiveNtxID())
	return err
}

func (m *Manager) CloseAllTabs(ctx context.Context) error {
	var err error
	for _, c := range m.MainNoteContexts() {
		_, removeErr := m.RemoveNoteContext(ctx, c.ID())
		err = errors.Join(err, removeErr)
	}
	return err
}

func (m *Manager) CloseOtherTabs(ctx context.Context, ntxID string) error {
	var err error
	for _, c := range m.MainNoteContexts() {
		if c.ID() == ntxID {
			continue
		}
		_, removeErr := m.RemoveNoteContext(ctx, c.ID())
		err = errors.Join(err, removeErr)
	}
	return err
}

func (m *Manager) CloseRightTabs(ctx context.Context, ntxID string) error {
	mains := m.MainNoteContexts()
	idx := indexOf(mains, ntxID)
	if idx < 0 {
		return nil
	}
	var err error
	for _, c := range mains[idx+1:] {
		_, removeErr := m.RemoveNoteContext(ctx, c.ID())
		err = errors.Join(err, removeErr)
	}
	return err
}

// OpenSplit opens notePath in a new split of the active tab.
func (m *Manager) OpenSplit(ctx context.Context, notePath string) (*notecontext.NoteContext, error) {
	main := m.ActiveMainContext()
	if main == nil {
		return m.OpenContextWithNote(ctx, notePath, OpenOptions{Activate: true})
	}
	return m.OpenContextWithNote(ctx, notePath, OpenOptions{
		Activate:      true,
		MainNtxID:     main.ID(),
		HoistedNoteID: main.HoistedNoteID(),
	})
}

func contextIDs(contexts []*notecontext.NoteContext) []string {
	ids := make([]string, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.ID())
	}
	return ids
}

func indexOf(contexts []*notecontext.NoteContext, ntxID string) int {
	for i, c := range contexts {
		if c.ID() == ntxID {
			return i
		}
	}
	return -1
}

func containsID(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
