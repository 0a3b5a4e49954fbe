package notepath

import (
	"context"
	"strings"

	"notenav/internal/types"
)

// TitleSeparator joins the titles of a note path.
const TitleSeparator = " › "

// Strip drops a "?..." suffix and surrounding whitespace.
func Strip(notePath string) string {
	if i := strings.IndexByte(notePath, '?'); i >= 0 {
		notePath = notePath[:i]
	}
	return strings.TrimSpace(notePath)
}

func Segments(notePath string) []string {
	notePath = Strip(notePath)
	if notePath == "" {
		return nil
	}
	return strings.Split(notePath, "/")
}

// NoteID returns the last segment of the path.
func NoteID(notePath string) string {
	segments := Segments(notePath)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// NoteIDAndParentID returns the leaf and its parent. "root" has the parent
// "none"; a single segment is assumed to hang under root.
func NoteIDAndParentID(notePath string) (noteID, parentNoteID string) {
	segments := Segments(notePath)
	if len(segments) == 0 {
		return "", ""
	}
	if len(segments) == 1 && segments[0] == types.RootNoteID {
		return types.RootNoteID, types.NoneNoteID
	}
	noteID = segments[len(segments)-1]
	parentNoteID = types.RootNoteID
	if len(segments) > 1 {
		parentNoteID = segments[len(segments)-2]
	}
	return noteID, parentNoteID
}

func IsInHiddenSubtree(notePath string) bool {
	return strings.Contains(notePath, types.RootNoteID+"/"+types.HiddenNoteID)
}

// Titler yields the display title of a note as placed under parentNoteID.
type Titler interface {
	NoteTitle(ctx context.Context, noteID, parentNoteID string) (string, error)
}

// TitleComponents returns the title of every segment below root.
func TitleComponents(ctx context.Context, titler Titler, notePath string) ([]string, error) {
	notePath = Strip(notePath)
	notePath = strings.TrimPrefix(notePath, types.RootNoteID+"/")
	if notePath == types.RootNoteID {
		title, err := titler.NoteTitle(ctx, types.RootNoteID, "")
		if err != nil {
			return nil, err
		}
		return []string{title}, nil
	}
	out := make([]string, 0)
	parentNoteID := types.RootNoteID
	for _, noteID := range strings.Split(notePath, "/") {
		title, err := titler.NoteTitle(ctx, noteID, parentNoteID)
		if err != nil {
			return nil, err
		}
		out = append(out, title)
		parentNoteID = noteID
	}
	return out, nil
}

func Title(ctx context.Context, titler Titler, notePath string) (string, error) {
	components, err := TitleComponents(ctx, titler, notePath)
	if err != nil {
		return "", err
	}
	return strings.Join(components, TitleSeparator), nil
}
