package types

type ViewMode string

const (
	ViewModeDefault        ViewMode = "default"
	ViewModeSource         ViewMode = "source"
	ViewModeAttachments    ViewMode = "attachments"
	ViewModeContextualHelp ViewMode = "contextual-help"
)

// ViewScope is per-view metadata of a note context. It is reset whenever the
// context switches to a different note.
type ViewScope struct {
	ViewMode                    ViewMode `json:"view_mode,omitempty"`
	AttachmentID                string   `json:"attachment_id,omitempty"`
	ReadOnlyTemporarilyDisabled bool     `json:"read_only_temporarily_disabled,omitempty"`
	TOCTemporarilyHidden        bool     `json:"toc_temporarily_hidden,omitempty"`
}

// Normalized returns a copy with an empty view mode replaced by the default one.
func (s ViewScope) Normalized() ViewScope {
	if s.ViewMode == "" {
		s.ViewMode = ViewModeDefault
	}
	return s
}

// NoteContextState is the persisted form of one open note context.
type NoteContextState struct {
	NtxID         string    `json:"ntx_id"`
	MainNtxID     string    `json:"main_ntx_id,omitempty"`
	NotePath      string    `json:"note_path,omitempty"`
	HoistedNoteID string    `json:"hoisted_note_id"`
	Active        bool      `json:"active,omitempty"`
	ViewScope     ViewScope `json:"view_scope"`
}
