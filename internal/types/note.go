package types

import "time"

type NoteType string

const (
	NoteTypeText          NoteType = "text"
	NoteTypeCode          NoteType = "code"
	NoteTypeBook          NoteType = "book"
	NoteTypeSearch        NoteType = "search"
	NoteTypeLauncher      NoteType = "launcher"
	NoteTypeFile          NoteType = "file"
	NoteTypeImage         NoteType = "image"
	NoteTypeDoc           NoteType = "doc"
	NoteTypeContentWidget NoteType = "contentWidget"
	NoteTypeRender        NoteType = "render"
	NoteTypeRelationMap   NoteType = "relationMap"
	NoteTypeNoteMap       NoteType = "noteMap"
	NoteTypeMermaid       NoteType = "mermaid"
	NoteTypeCanvas        NoteType = "canvas"
	NoteTypeWebView       NoteType = "webView"
	NoteTypeMindMap       NoteType = "mindMap"
)

type AttributeType string

const (
	AttributeTypeLabel    AttributeType = "label"
	AttributeTypeRelation AttributeType = "relation"
)

// Well-known note ids of the built-in tree.
const (
	RootNoteID          = "root"
	NoneNoteID          = "none"
	HiddenNoteID        = "_hidden"
	LaunchBarRootNoteID = "_lbRoot"
	OptionsRootNoteID   = "_options"
)

// Attribute names and markers the navigation engine reacts to.
const (
	LabelKeepCurrentHoisting  = "keepCurrentHoisting"
	LabelReadOnly             = "readOnly"
	LabelAutoReadOnlyDisabled = "autoReadOnlyDisabled"
	LabelHideChildrenOverview = "hideChildrenOverview"
	LabelViewType             = "viewType"
	LabelArchived             = "archived"
	RelationTemplate          = "template"
	RelationInherit           = "inherit"
	MimeTriliumSQLiteSchema   = "text/x-sqlite;schema=trilium"
	VirtualBranchPrefix       = "virt-"
	DefaultCollectionViewType = "grid"
	CollectionViewTypeList    = "list"
	CollectionViewTypeGrid    = "grid"
)

var launchBarConfigNoteIDs = map[string]struct{}{
	"_lbRoot":                     {},
	"_lbAvailableLaunchers":       {},
	"_lbVisibleLaunchers":         {},
	"_lbMobileRoot":               {},
	"_lbMobileAvailableLaunchers": {},
	"_lbMobileVisibleLaunchers":   {},
}

// IsLaunchBarConfigNoteID reports whether id is one of the launch bar container notes.
func IsLaunchBarConfigNoteID(id string) bool {
	_, ok := launchBarConfigNoteIDs[id]
	return ok
}

type Attribute struct {
	ID            string        `json:"id" toml:"id,omitempty"`
	Type          AttributeType `json:"type" toml:"type"`
	Name          string        `json:"name" toml:"name"`
	Value         string        `json:"value,omitempty" toml:"value,omitempty"`
	IsInheritable bool          `json:"is_inheritable,omitempty" toml:"inheritable,omitempty"`
	Position      int           `json:"position,omitempty" toml:"position,omitempty"`
}

type Note struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Type        NoteType    `json:"type"`
	Mime        string      `json:"mime,omitempty"`
	BlobID      string      `json:"blob_id,omitempty"`
	IsProtected bool        `json:"is_protected,omitempty"`
	IsDeleted   bool        `json:"is_deleted,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Branch is one parent→child edge. A note with several branches is cloned
// into several places of the tree.
type Branch struct {
	ID           string    `json:"id"`
	NoteID       string    `json:"note_id"`
	ParentNoteID string    `json:"parent_note_id"`
	Position     int       `json:"position"`
	Prefix       string    `json:"prefix,omitempty"`
	IsExpanded   bool      `json:"is_expanded,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Blob struct {
	ID        string    `json:"id"`
	Content   []byte    `json:"content,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Blob) ContentLength() int {
	if b == nil {
		return 0
	}
	return len(b.Content)
}

type Attachment struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Role      string    `json:"role,omitempty"`
	Mime      string    `json:"mime,omitempty"`
	Title     string    `json:"title"`
	BlobID    string    `json:"blob_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RecentNote struct {
	NoteID    string    `json:"note_id"`
	NotePath  string    `json:"note_path"`
	CreatedAt time.Time `json:"created_at"`
}

func BranchID(parentNoteID, noteID string) string {
	return parentNoteID + "_" + noteID
}
