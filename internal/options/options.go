package options

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"notenav/internal/config"
	"notenav/internal/logging"
	"notenav/internal/store"

	opts "github.com/goliatone/go-options"
)

// Option names read by the navigation engine.
const (
	DatabaseReadonly        = "databaseReadonly"
	AutoReadonlySizeText    = "autoReadonlySizeText"
	AutoReadonlySizeCode    = "autoReadonlySizeCode"
	OpenNoteContexts        = "openNoteContexts"
	ProtectedSessionTimeout = "protectedSessionTimeout"
	MobileLayout            = "mobile"
)

var ErrUnknownOption = errors.New("option is not set")

// Defaults derives option defaults from the config files. Stored values take
// precedence over them.
func Defaults(core config.CoreConfig, ui config.UIConfig) map[string]string {
	return map[string]string{
		DatabaseReadonly:        strconv.FormatBool(core.ReadOnly.DatabaseReadonly),
		AutoReadonlySizeText:    strconv.Itoa(core.AutoReadonlySizeText()),
		AutoReadonlySizeCode:    strconv.Itoa(core.AutoReadonlySizeCode()),
		OpenNoteContexts:        "[]",
		ProtectedSessionTimeout: strconv.Itoa(int(core.ProtectedSessionTimeout().Seconds())),
		MobileLayout:            strconv.FormatBool(ui.IsMobile()),
	}
}

// Scopes of the option stack, strongest first.
const (
	ScopeStored = "stored"
	ScopeConfig = "config"
)

var (
	storedScope = opts.NewScope(ScopeStored, 20, opts.WithScopeLabel("options store"))
	configScope = opts.NewScope(ScopeConfig, 10, opts.WithScopeLabel("config files"))
)

// Entry is one effective option and the scope that supplied it.
type Entry struct {
	Name  string
	Value string
	Scope string
}

// Options is a read-mostly view over two layers: the persisted values and the
// defaults beneath them.
type Options struct {
	store  store.OptionStore
	logger logging.Logger

	mu       sync.RWMutex
	defaults map[string]string
	stored   map[string]string
	merged   *opts.Options[map[string]string]
}

func New(optionStore store.OptionStore, defaults map[string]string, logger logging.Logger) *Options {
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Options{
		store:    optionStore,
		logger:   logger,
		defaults: cloneValues(defaults),
		stored:   map[string]string{},
	}
	o.mergeLocked()
	return o
}

// Load replaces the persisted layer with the store's current contents.
func (o *Options) Load(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	values, err := o.store.LoadOptions(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stored = cloneValues(values)
	o.mergeLocked()
	return nil
}

// mergeLocked rebuilds the effective values from the layer stack.
func (o *Options) mergeLocked() {
	stack, err := opts.NewStack(
		opts.NewLayer(storedScope, o.stored),
		opts.NewLayer(configScope, o.defaults),
	)
	if err == nil {
		var merged *opts.Options[map[string]string]
		if merged, err = stack.Merge(); err == nil {
			o.merged = merged
			return
		}
	}
	o.logger.Error("option_layers_merge_failed", logging.Err(err))
}

func (o *Options) lookup(name string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.merged == nil {
		return "", false
	}
	value, ok := o.merged.Value[name]
	return value, ok
}

// Source returns the scope supplying the effective value of name, or "" when
// the option is unset.
func (o *Options) Source(name string) string {
	o.mu.RLock()
	merged := o.merged
	o.mu.RUnlock()
	if merged == nil || strings.TrimSpace(name) == "" {
		return ""
	}
	_, trace, err := merged.ResolveWithTrace(name)
	if err != nil {
		return ""
	}
	for _, layer := range trace.Layers {
		if layer.Found {
			return layer.Scope.Name
		}
	}
	return ""
}

// Entries lists every effective option sorted by name.
func (o *Options) Entries() ([]Entry, error) {
	o.mu.RLock()
	merged := o.merged
	o.mu.RUnlock()
	if merged == nil || len(merged.Value) == 0 {
		return nil, nil
	}
	provenance, err := merged.FlattenWithProvenance()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(provenance))
	for _, prov := range provenance {
		out = append(out, Entry{
			Name:  prov.Path,
			Value: merged.Value[prov.Path],
			Scope: prov.Scope.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func (o *Options) Get(name string) string {
	value, _ := o.lookup(name)
	return value
}

// Is reports whether the option holds "true".
func (o *Options) Is(name string) bool {
	value, ok := o.lookup(name)
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}

// GetInt returns the option as an integer. The second result is false when
// the option is unset or not a number.
func (o *Options) GetInt(name string) (int, bool) {
	value, ok := o.lookup(name)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		o.logger.Warn("option_not_an_integer", logging.F("name", name), logging.F("value", value))
		return 0, false
	}
	return parsed, true
}

func (o *Options) GetJSON(name string, v any) error {
	value, ok := o.lookup(name)
	if !ok || strings.TrimSpace(value) == "" {
		return ErrUnknownOption
	}
	return json.Unmarshal([]byte(value), v)
}

func (o *Options) Set(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("option name is required")
	}
	if o.store != nil {
		if err := o.store.SetOption(ctx, name, value); err != nil {
			return err
		}
	}
	o.mu.Lock()
	o.stored[name] = value
	o.mergeLocked()
	o.mu.Unlock()
	return nil
}

func (o *Options) SetJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return o.Set(ctx, name, string(data))
}
