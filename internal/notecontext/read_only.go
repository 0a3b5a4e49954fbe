package notecontext

import (
	"context"

	"notenav/internal/events"
	"notenav/internal/options"
	"notenav/internal/types"
)

// IsReadOnly decides whether the note is shown read-only. Only text and code
// notes can be read-only. The size-based part of the decision is made once
// per view scope and remembered until the scope is reset.
func (c *NoteContext) IsReadOnly(ctx context.Context) (bool, error) {
	c.mu.Lock()
	scope := c.viewScope
	c.mu.Unlock()
	if scope.ReadOnlyTemporarilyDisabled {
		return false, nil
	}

	note := c.Note()
	if note == nil {
		return false, nil
	}
	noteType := note.Type()
	if noteType != types.NoteTypeText && noteType != types.NoteTypeCode {
		return false, nil
	}
	opts := c.services.Options
	if opts != nil && opts.Is(options.DatabaseReadonly) {
		return true, nil
	}
	if note.IsLabelTruthy(types.LabelReadOnly) {
		return true, nil
	}
	if scope.ViewMode == types.ViewModeSource {
		return true, nil
	}

	c.mu.Lock()
	if c.readOnly != nil {
		cached := *c.readOnly
		c.mu.Unlock()
		return cached, nil
	}
	version := c.scopeVersion
	c.mu.Unlock()

	decision := false
	blob, err := c.services.Notes.Blob(ctx, note.ID())
	if err != nil {
		return false, err
	}
	if blob != nil && opts != nil {
		limitName := options.AutoReadonlySizeText
		if noteType == types.NoteTypeCode {
			limitName = options.AutoReadonlySizeCode
		}
		limit, ok := opts.GetInt(limitName)
		decision = ok && limit > 0 &&
			blob.ContentLength() > limit &&
			!note.IsLabelTruthy(types.LabelAutoReadOnlyDisabled)
	}

	c.mu.Lock()
	if c.scopeVersion == version {
		c.readOnly = &decision
	}
	c.mu.Unlock()
	return decision, nil
}

// DisableReadOnlyTemporarily lets the user edit a read-only note until the
// context switches to another note.
func (c *NoteContext) DisableReadOnlyTemporarily(ctx context.Context) error {
	c.mu.Lock()
	c.viewScope.ReadOnlyTemporarilyDisabled = true
	c.mu.Unlock()
	return c.services.Bus.TriggerEvent(ctx, events.ReadOnlyTemporarilyDisabled, ReadOnlyTemporarilyDisabledPayload{NoteContext: c})
}

// SetTOCTemporarilyHidden hides or shows the table of contents until the next
// note switch. Hiding drops the published table of contents.
func (c *NoteContext) SetTOCTemporarilyHidden(ctx context.Context, hidden bool) error {
	c.mu.Lock()
	c.viewScope.TOCTemporarilyHidden = hidden
	_, published := c.data[DataTableOfContents]
	c.mu.Unlock()
	if hidden && published {
		return c.ClearContextData(ctx, DataTableOfContents)
	}
	return nil
}

// HasNoteList reports whether the children of the note are listed below it.
func (c *NoteContext) HasNoteList() bool {
	note := c.Note()
	if note == nil {
		return false
	}
	data := note.Data()
	if data.Type == types.NoteTypeSearch {
		return false
	}
	viewMode := c.ViewScope().ViewMode
	if viewMode != types.ViewModeDefault && viewMode != types.ViewModeContextualHelp {
		return false
	}
	if data.Type == types.NoteTypeBook {
		viewType := note.LabelValue(types.LabelViewType)
		if viewType == "" {
			viewType = types.DefaultCollectionViewType
		}
		if viewType != types.CollectionViewTypeList && viewType != types.CollectionViewTypeGrid {
			return true
		}
	}
	if !note.HasChildren() {
		return false
	}
	switch data.Type {
	case types.NoteTypeBook, types.NoteTypeText, types.NoteTypeCode:
	default:
		return false
	}
	if data.Mime == types.MimeTriliumSQLiteSchema {
		return false
	}
	return !note.IsLabelTruthy(types.LabelHideChildrenOverview)
}
