package notecontext

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notenav/internal/events"
	"notenav/internal/hoisting"
	"notenav/internal/logging"
	"notenav/internal/notecache"
	"notenav/internal/notepath"
	"notenav/internal/protectedsession"
	"notenav/internal/types"
)

const DefaultWidgetQueryTimeout = 200 * time.Millisecond

type Notes interface {
	GetNote(ctx context.Context, id string) (*notecache.Note, error)
	NoteFromCache(id string) *notecache.Note
	Blob(ctx context.Context, noteID string) (*types.Blob, error)
	Attachment(ctx context.Context, id string) (*types.Attachment, error)
}

type PathResolver interface {
	ResolveString(ctx context.Context, notePath, hoistedNoteID string) (string, error)
}

type AccessChecker interface {
	CheckNoteAccess(ctx context.Context, resolvedNotePath string, target hoisting.Target) (bool, error)
}

type Options interface {
	Is(name string) bool
	GetInt(name string) (int, bool)
}

type RecentRecorder interface {
	Schedule(noteID, notePath string, isCurrent func(notePath string) bool) (cancel func())
}

type SessionToucher interface {
	TouchIfNecessary(note protectedsession.Protected)
}

// Collection is the set of open contexts a context belongs to.
type Collection interface {
	NoteContexts() []*NoteContext
	NoteContextByID(ntxID string) (*NoteContext, bool)
	ActiveNtxID() string
}

// Services are the collaborators shared by all contexts of one window.
// Only Notes and Resolver are required.
type Services struct {
	Notes              Notes
	Resolver           PathResolver
	Access             AccessChecker
	Options            Options
	Recent             RecentRecorder
	Protected          SessionToucher
	Bus                *events.Bus
	Collection         Collection
	Logger             logging.Logger
	Mobile             bool
	WidgetQueryTimeout time.Duration
}

// NoteContext is the navigation state of one tab or split.
type NoteContext struct {
	services *Services
	logger   logging.Logger
	id       string

	mu            sync.Mutex
	hoistedNoteID string
	mainNtxID     string
	notePath      string
	noteID        string
	parentNoteID  string
	viewScope     types.ViewScope
	scopeVersion  uint64
	readOnly      *bool
	data          map[DataKey]ContextData
	generation    uint64
	cancelRecent  func()
	closed        bool

	unsubscribe func()
}

type Option func(*NoteContext)

func WithID(id string) Option {
	return func(c *NoteContext) {
		if id = strings.TrimSpace(id); id != "" {
			c.id = id
		}
	}
}

func WithHoistedNoteID(id string) Option {
	return func(c *NoteContext) {
		if id = strings.TrimSpace(id); id != "" {
			c.hoistedNoteID = id
		}
	}
}

// WithMainNtxID makes the context a split of the given main context.
func WithMainNtxID(id string) Option {
	return func(c *NoteContext) {
		c.mainNtxID = strings.TrimSpace(id)
	}
}

// GenerateNtxID returns a short random context id.
func GenerateNtxID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func New(services *Services, opts ...Option) *NoteContext {
	if services == nil {
		services = &Services{}
	}
	c := &NoteContext{
		services:      services,
		hoistedNoteID: types.RootNoteID,
		data:          map[DataKey]ContextData{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.id == "" {
		c.id = GenerateNtxID()
	}
	logger := services.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	c.logger = logger.With(logging.F("ntx_id", c.id))
	c.resetViewScopeLocked()
	c.unsubscribe = services.Bus.Subscribe(events.EntitiesReloaded, c.entitiesReloaded)
	return c
}

func (c *NoteContext) ID() string {
	return c.id
}

func (c *NoteContext) HoistedNoteID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hoistedNoteID
}

func (c *NoteContext) MainNtxID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mainNtxID
}

func (c *NoteContext) NotePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notePath
}

func (c *NoteContext) NoteID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noteID
}

func (c *NoteContext) ParentNoteID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parentNoteID
}

func (c *NoteContext) NotePathArray() []string {
	return notepath.Segments(c.NotePath())
}

func (c *NoteContext) ViewScope() types.ViewScope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewScope
}

func (c *NoteContext) IsEmpty() bool {
	return c.NoteID() == ""
}

// Note returns the bound note, or nil when empty or not cached.
func (c *NoteContext) Note() *notecache.Note {
	noteID := c.NoteID()
	if noteID == "" || c.services.Notes == nil {
		return nil
	}
	return c.services.Notes.NoteFromCache(noteID)
}

type setNoteConfig struct {
	viewScope          types.ViewScope
	triggerSwitchEvent bool
}

type SetNoteOption func(*setNoteConfig)

func WithViewScope(scope types.ViewScope) SetNoteOption {
	return func(cfg *setNoteConfig) {
		cfg.viewScope = scope
	}
}

// WithoutSwitchEvent suppresses the noteSwitched event of this switch.
func WithoutSwitchEvent() SetNoteOption {
	return func(cfg *setNoteConfig) {
		cfg.triggerSwitchEvent = false
	}
}

// SetNote navigates the context to inputNotePath. Paths that cannot be
// resolved, or that the user refused to leave the hoisted subtree for, leave
// the context unchanged. A later SetNote supersedes an earlier one still
// resolving. The returned error only reports failing event listeners.
func (c *NoteContext) SetNote(ctx context.Context, inputNotePath string, opts ...SetNoteOption) error {
	cfg := setNoteConfig{triggerSwitchEvent: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.viewScope = cfg.viewScope.Normalized()
	if strings.TrimSpace(inputNotePath) == "" {
		return nil
	}

	generation := c.nextGeneration()
	resolved, err := c.ResolvedNotePath(ctx, inputNotePath)
	if err != nil {
		c.logger.Error("note_path_unresolvable", logging.F("note_path", inputNotePath), logging.Err(err))
		return nil
	}
	if resolved == "" || c.isStale(generation) {
		return nil
	}

	c.mu.Lock()
	unchanged := c.notePath == resolved && c.viewScope == cfg.viewScope
	c.mu.Unlock()
	if unchanged {
		return nil
	}

	var switchErr error
	if err := c.services.Bus.TriggerEvent(ctx, events.BeforeNoteSwitch, BeforeNoteSwitchPayload{NoteContext: c}); err != nil {
		switchErr = errors.Join(switchErr, err)
	}
	if c.isStale(generation) {
		return switchErr
	}

	noteID, parentNoteID := notepath.NoteIDAndParentID(resolved)
	c.mu.Lock()
	c.notePath = resolved
	c.noteID = noteID
	c.parentNoteID = parentNoteID
	c.viewScope = cfg.viewScope
	c.scopeVersion++
	c.readOnly = nil
	cleared := sortedDataKeys(c.data)
	c.data = map[DataKey]ContextData{}
	if c.cancelRecent != nil {
		c.cancelRecent()
		c.cancelRecent = nil
	}
	c.mu.Unlock()

	for _, key := range cleared {
		if err := c.publishDataChange(ctx, key, nil); err != nil {
			switchErr = errors.Join(switchErr, err)
		}
	}

	c.saveToRecentNotes(noteID, resolved)
	if note := c.Note(); note != nil && c.services.Protected != nil {
		c.services.Protected.TouchIfNecessary(note)
	}

	if cfg.triggerSwitchEvent {
		payload := NoteSwitchedPayload{NoteContext: c, NotePath: resolved}
		if err := c.services.Bus.TriggerEvent(ctx, events.NoteSwitched, payload); err != nil {
			switchErr = errors.Join(switchErr, err)
		}
	}

	if err := c.setHoistedNoteIfNeeded(ctx); err != nil {
		switchErr = errors.Join(switchErr, err)
	}

	if c.services.Mobile {
		if err := c.services.Bus.TriggerCommand(ctx, events.SetActiveScreenCommand, SetActiveScreenPayload{Screen: "detail"}); err != nil {
			switchErr = errors.Join(switchErr, err)
		}
	}
	return switchErr
}

// ResolvedNotePath resolves inputNotePath under the current hoisting and
// checks the result may be shown. It returns "" when navigation should not
// happen.
func (c *NoteContext) ResolvedNotePath(ctx context.Context, inputNotePath string) (string, error) {
	if c.services.Resolver == nil {
		return "", errors.New("path resolver is not configured")
	}
	resolved, err := c.services.Resolver.ResolveString(ctx, inputNotePath, c.HoistedNoteID())
	if err != nil {
		return "", err
	}
	if resolved == "" {
		c.logger.Error("note_path_unresolvable", logging.F("note_path", inputNotePath))
		return "", nil
	}
	if notepath.NoteID(resolved) == "" {
		c.logger.Error("note_path_unresolvable",
			logging.F("note_path", inputNotePath),
			logging.F("resolved", resolved),
			logging.F("reason", "empty note id"),
		)
		return "", nil
	}
	if c.services.Access != nil {
		ok, err := c.services.Access.CheckNoteAccess(ctx, resolved, accessTarget{c})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}
	return resolved, nil
}

// accessTarget unhoists without navigating, since the caller is about to
// navigate anyway.
type accessTarget struct {
	c *NoteContext
}

func (t accessTarget) HoistedNoteID() string {
	return t.c.HoistedNoteID()
}

func (t accessTarget) Unhoist(ctx context.Context) error {
	return t.c.setHoistedNoteID(ctx, types.RootNoteID, false)
}

// SetEmpty unbinds the context from its note. Hoisting is kept.
func (c *NoteContext) SetEmpty(ctx context.Context) error {
	c.nextGeneration()
	c.mu.Lock()
	c.notePath = ""
	c.noteID = ""
	c.parentNoteID = ""
	if c.cancelRecent != nil {
		c.cancelRecent()
		c.cancelRecent = nil
	}
	c.mu.Unlock()

	err := c.services.Bus.TriggerEvent(ctx, events.NoteSwitched, NoteSwitchedPayload{NoteContext: c})
	c.ResetViewScope()
	return err
}

// ResetViewScope drops the view scope, including the cached read-only decision.
func (c *NoteContext) ResetViewScope() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetViewScopeLocked()
}

func (c *NoteContext) resetViewScopeLocked() {
	c.viewScope = types.ViewScope{}
	c.scopeVersion++
	c.readOnly = nil
}

func (c *NoteContext) Unhoist(ctx context.Context) error {
	return c.SetHoistedNoteID(ctx, types.RootNoteID)
}

// SetHoistedNoteID restricts navigation to the subtree of noteID. When the
// current note is outside it, the context navigates to noteID itself.
func (c *NoteContext) SetHoistedNoteID(ctx context.Context, noteID string) error {
	return c.setHoistedNoteID(ctx, noteID, true)
}

func (c *NoteContext) setHoistedNoteID(ctx context.Context, noteID string, navigate bool) error {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return nil
	}
	c.mu.Lock()
	if c.hoistedNoteID == noteID {
		c.mu.Unlock()
		return nil
	}
	c.hoistedNoteID = noteID
	segments := notepath.Segments(c.notePath)
	c.mu.Unlock()

	var err error
	if navigate && !containsSegment(segments, noteID) {
		err = errors.Join(err, c.SetNote(ctx, noteID))
	}
	payload := HoistedNoteChangedPayload{NoteID: noteID, NtxID: c.id}
	return errors.Join(err, c.services.Bus.TriggerEvent(ctx, events.HoistedNoteChanged, payload))
}

// setHoistedNoteIfNeeded hoists into the hidden subtree when a note inside it
// is opened while hoisted at root, since that subtree is only shown hoisted.
func (c *NoteContext) setHoistedNoteIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	hoisted := c.hoistedNoteID
	notePath := c.notePath
	c.mu.Unlock()
	if hoisted != types.RootNoteID || !strings.HasPrefix(notePath, types.RootNoteID+"/"+types.HiddenNoteID) {
		return nil
	}
	note := c.Note()
	if note != nil && note.IsLabelTruthy(types.LabelKeepCurrentHoisting) {
		return nil
	}
	target := types.HiddenNoteID
	if note != nil {
		switch {
		case note.IsLaunchBarConfig():
			target = types.LaunchBarRootNoteID
		case note.IsOptions():
			target = types.OptionsRootNoteID
		}
	}
	return c.SetHoistedNoteID(ctx, target)
}

func (c *NoteContext) saveToRecentNotes(noteID, notePath string) {
	recent := c.services.Recent
	if recent == nil {
		return
	}
	cancel := recent.Schedule(noteID, notePath, func(path string) bool {
		return c.NotePath() == path
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.notePath != notePath {
		cancel()
		return
	}
	if c.cancelRecent != nil {
		c.cancelRecent()
	}
	c.cancelRecent = cancel
}

func (c *NoteContext) nextGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

func (c *NoteContext) isStale(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != generation || c.closed
}

func (c *NoteContext) entitiesReloaded(ctx context.Context, event events.Event) error {
	results, ok := event.Payload.(notecache.LoadResults)
	if !ok {
		return nil
	}
	c.mu.Lock()
	if c.noteID == "" || !results.IsNoteDeleted(c.noteID) {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	c.noteID = ""
	c.notePath = ""
	c.parentNoteID = ""
	if c.cancelRecent != nil {
		c.cancelRecent()
		c.cancelRecent = nil
	}
	c.mu.Unlock()

	return c.services.Bus.TriggerEvent(ctx, events.NoteSwitched, NoteSwitchedPayload{NoteContext: c})
}

// Close detaches the context from the bus and cancels pending work. The
// context must not be used afterwards.
func (c *NoteContext) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancelRecent != nil {
		c.cancelRecent()
		c.cancelRecent = nil
	}
	c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// SetContextData stores value under its key and broadcasts the change.
func (c *NoteContext) SetContextData(ctx context.Context, value ContextData) error {
	if value == nil {
		return errors.New("context data is required")
	}
	c.mu.Lock()
	c.data[value.Key()] = value
	c.mu.Unlock()
	return c.publishDataChange(ctx, value.Key(), value)
}

func (c *NoteContext) GetContextData(key DataKey) (ContextData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	return value, ok
}

func (c *NoteContext) HasContextData(key DataKey) bool {
	_, ok := c.GetContextData(key)
	return ok
}

func (c *NoteContext) ClearContextData(ctx context.Context, key DataKey) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return c.publishDataChange(ctx, key, nil)
}

func (c *NoteContext) publishDataChange(ctx context.Context, key DataKey, value ContextData) error {
	payload := ContextDataChangedPayload{NoteContext: c, Key: key, Value: value}
	return c.services.Bus.TriggerEvent(ctx, events.ContextDataChanged, payload)
}

// SubContexts returns this context and its splits.
func (c *NoteContext) SubContexts() []*NoteContext {
	collection := c.services.Collection
	if collection == nil {
		return []*NoteContext{c}
	}
	out := make([]*NoteContext, 0)
	for _, other := range collection.NoteContexts() {
		if other.ID() == c.id || other.MainNtxID() == c.id {
			out = append(out, other)
		}
	}
	return out
}

// IsMainContext reports whether the context is a tab rather than a split.
func (c *NoteContext) IsMainContext() bool {
	return c.MainNtxID() == ""
}

// MainContext returns the tab this split belongs to. A split whose main
// context no longer exists becomes a main context itself.
func (c *NoteContext) MainContext() *NoteContext {
	mainNtxID := c.MainNtxID()
	if mainNtxID == "" {
		return c
	}
	if c.services.Collection != nil {
		if main, ok := c.services.Collection.NoteContextByID(mainNtxID); ok {
			return main
		}
	}
	c.logger.Debug("main_context_missing",
		logging.F("main_ntx_id", mainNtxID),
		logging.F("action", "promote_split"),
	)
	c.mu.Lock()
	if c.mainNtxID == mainNtxID {
		c.mainNtxID = ""
	}
	c.mu.Unlock()
	return c
}

func (c *NoteContext) IsActive() bool {
	return c.services.Collection != nil && c.services.Collection.ActiveNtxID() == c.id
}

// State returns the persisted form of the context. An empty hoisted context
// without splits is not worth restoring and reports false.
func (c *NoteContext) State() (types.NoteContextState, bool) {
	c.mu.Lock()
	state := types.NoteContextState{
		NtxID:         c.id,
		MainNtxID:     c.mainNtxID,
		NotePath:      c.notePath,
		HoistedNoteID: c.hoistedNoteID,
		ViewScope:     c.viewScope,
	}
	c.mu.Unlock()

	if state.HoistedNoteID != types.RootNoteID && state.NotePath == "" && len(c.SubContexts()) <= 1 {
		return types.NoteContextState{}, false
	}
	state.Active = c.IsActive()
	return state, true
}

// NavigationTitle is the title shown for the context, e.g. in a tab. It is
// empty when the context has no note.
func (c *NoteContext) NavigationTitle(ctx context.Context) (string, error) {
	note := c.Note()
	if note == nil {
		return "", nil
	}
	scope := c.ViewScope().Normalized()
	title := note.Title()
	if scope.ViewMode != types.ViewModeDefault && scope.ViewMode != types.ViewModeContextualHelp {
		title += ": " + string(scope.ViewMode)
	}
	if scope.AttachmentID != "" {
		attachment, err := c.services.Notes.Attachment(ctx, scope.AttachmentID)
		if err != nil {
			return "", err
		}
		if attachment != nil {
			title += ": " + attachment.Title
		}
	}
	return title, nil
}

func containsSegment(segments []string, id string) bool {
	for _, segment := range segments {
		if segment == id {
			return true
		}
	}
	return false
}
