package notecontext

import "sort"

// DataKey names one kind of per-note metadata a context can carry.
type DataKey string

const (
	DataTableOfContents DataKey = "toc"
	DataPageList        DataKey = "pdfPages"
	DataCodeOutline     DataKey = "codeOutline"
)

// ContextData is metadata published by a content view for the note currently
// shown in a context. It is cleared whenever the context switches notes.
// The set of implementations is closed to this package.
type ContextData interface {
	Key() DataKey
	contextData()
}

type Heading struct {
	ID    string
	Level int
	Text  string
}

type TableOfContents struct {
	Headings []Heading
}

func (TableOfContents) Key() DataKey { return DataTableOfContents }
func (TableOfContents) contextData() {}

type Page struct {
	Number int
	Title  string
}

type PageList struct {
	Pages       []Page
	CurrentPage int
}

func (PageList) Key() DataKey { return DataPageList }
func (PageList) contextData() {}

type OutlineSymbol struct {
	Name string
	Kind string
	Line int
}

type CodeOutline struct {
	Symbols []OutlineSymbol
}

func (CodeOutline) Key() DataKey { return DataCodeOutline }
func (CodeOutline) contextData() {}

// Data returns the context data of type T, if present.
func Data[T ContextData](c *NoteContext) (T, bool) {
	var zero T
	value, ok := c.GetContextData(zero.Key())
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

func sortedDataKeys(data map[DataKey]ContextData) []DataKey {
	keys := make([]DataKey, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
