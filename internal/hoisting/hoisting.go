package hoisting

import (
	"context"
	"fmt"
	"strings"

	"notenav/internal/logging"
	"notenav/internal/notecache"
	"notenav/internal/types"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

type PrompterFunc func(ctx context.Context, message string) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// AlwaysConfirm accepts every prompt. Used by non-interactive callers.
var AlwaysConfirm Prompter = PrompterFunc(func(context.Context, string) (bool, error) { return true, nil })

type NoteLookup interface {
	GetNote(ctx context.Context, id string) (*notecache.Note, error)
}

// Target is the navigation context whose hoisting is being checked.
type Target interface {
	HoistedNoteID() string
	Unhoist(ctx context.Context) error
}

type Checker struct {
	notes    NoteLookup
	prompter Prompter
	logger   logging.Logger
}

func NewChecker(notes NoteLookup, prompter Prompter, logger logging.Logger) *Checker {
	if prompter == nil {
		prompter = AlwaysConfirm
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Checker{notes: notes, prompter: prompter, logger: logger}
}

// CheckNoteAccess reports whether target may navigate to the resolved path.
// A path outside the hoisted subtree needs the user to agree to unhoisting,
// after which target is unhoisted. Paths into the hidden subtree are allowed
// without asking, except for bookmarks.
func (c *Checker) CheckNoteAccess(ctx context.Context, resolvedNotePath string, target Target) (bool, error) {
	if resolvedNotePath == "" {
		return false, nil
	}
	hoistedNoteID := target.HoistedNoteID()
	segments := strings.Split(resolvedNotePath, "/")
	if containsSegment(segments, hoistedNoteID) {
		return true, nil
	}
	if containsSegment(segments, types.HiddenNoteID) && !strings.Contains(resolvedNotePath, "_lbBookmarks") {
		return true, nil
	}

	noteID := segments[len(segments)-1]
	note, err := c.notes.GetNote(ctx, noteID)
	if err != nil {
		return false, err
	}
	hoistedNote, err := c.notes.GetNote(ctx, hoistedNoteID)
	if err != nil {
		return false, err
	}
	if hoistedNote != nil && !hoistedNote.HasAncestor(types.HiddenNoteID) {
		noteTitle := noteID
		if note != nil {
			noteTitle = note.Title()
		}
		message := fmt.Sprintf("Requested note '%s' is outside of hoisted note subtree '%s' and you need to unhoist to access the note. Do you want to proceed with unhoisting?", noteTitle, hoistedNote.Title())
		ok, err := c.prompter.Confirm(ctx, message)
		if err != nil {
			return false, err
		}
		if !ok {
			c.logger.Debug("unhoist_declined", logging.F("note_path", resolvedNotePath), logging.F("hoisted_note_id", hoistedNoteID))
			return false, nil
		}
	}
	if err := target.Unhoist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func containsSegment(segments []string, id string) bool {
	for _, segment := range segments {
		if segment == id {
			return true
		}
	}
	return false
}
