package notepath

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notenav/internal/logging"
	"notenav/internal/types"
)

var ErrUnresolvable = errors.New("note path cannot be resolved")

// Tree is the read side of the note cache the resolver walks.
type Tree interface {
	// Exists loads id if needed and reports whether it is known.
	Exists(ctx context.Context, id string) (bool, error)
	SortedParentNoteIDs(id string) []string
	BestNotePath(id, hoistedNoteID, activeNotePath string) []string
}

// Resolver turns a possibly stale note path into one that exists in the tree.
type Resolver struct {
	tree       Tree
	activePath func() string
	logger     logging.Logger
}

// NewResolver builds a resolver. activePath returns the note path of the
// active context and is used to break ties between equally good repairs; it
// may be nil.
func NewResolver(tree Tree, activePath func() string, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	if activePath == nil {
		activePath = func() string { return "" }
	}
	return &Resolver{tree: tree, activePath: activePath, logger: logger}
}

// ResolveString is Resolve joined back into a path; "" means nothing resolved.
func (r *Resolver) ResolveString(ctx context.Context, notePath, hoistedNoteID string) (string, error) {
	segments, err := r.Resolve(ctx, notePath, hoistedNoteID)
	if err != nil || segments == nil {
		return "", err
	}
	return strings.Join(segments, "/"), nil
}

// Resolve returns the corrected root-to-leaf segments of notePath.
//
// A missing ancestor or a note without parents is a soft failure: it is
// logged and (nil, nil) is returned. When the walked path does not reach both
// root and the hoisted note, the best path of the leaf is computed instead; if
// that leaf is missing or has no path at all, ErrUnresolvable is returned.
func (r *Resolver) Resolve(ctx context.Context, notePath, hoistedNoteID string) ([]string, error) {
	notePath = Strip(notePath)
	if notePath == "" {
		return nil, nil
	}
	if hoistedNoteID == "" {
		hoistedNoteID = types.RootNoteID
	}

	path := strings.Split(notePath, "/")
	effective := make([]string, 0, len(path))
	var (
		childNoteID string
		hasChild    bool
	)
	for i := len(path) - 1; i >= 0; i-- {
		parentNoteID := path[i]
		if hasChild {
			ok, err := r.tree.Exists(ctx, childNoteID)
			if err != nil {
				return nil, err
			}
			if !ok {
				r.logger.Error("note_path_unresolvable",
					logging.F("note_path", notePath),
					logging.F("reason", "note not found"),
					logging.F("note_id", childNoteID),
				)
				return nil, nil
			}
			parents := r.tree.SortedParentNoteIDs(childNoteID)
			if len(parents) == 0 {
				r.logger.Error("note_path_unresolvable",
					logging.F("note_path", notePath),
					logging.F("reason", "note has no parents"),
					logging.F("note_id", childNoteID),
				)
				return nil, nil
			}
			outermost := i == 0
			if !contains(parents, parentNoteID) || (outermost && parentNoteID != types.RootNoteID) {
				r.logger.Debug("note_path_repaired",
					logging.F("note_path", notePath),
					logging.F("parent_id", parentNoteID),
					logging.F("child_id", childNoteID),
					logging.F("parents", parents),
				)
				if best := r.tree.BestNotePath(childNoteID, hoistedNoteID, r.activePath()); len(best) > 0 {
					for j := len(best) - 2; j >= 0; j-- {
						effective = append(effective, best[j])
					}
				}
				break
			}
		}
		effective = append(effective, parentNoteID)
		childNoteID = parentNoteID
		hasChild = true
	}
	reverse(effective)

	if contains(effective, hoistedNoteID) && contains(effective, types.RootNoteID) {
		return effective, nil
	}

	noteID := NoteID(notePath)
	ok, err := r.tree.Exists(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: note %q not found", ErrUnresolvable, noteID)
	}
	best := r.tree.BestNotePath(noteID, hoistedNoteID, r.activePath())
	if len(best) == 0 {
		return nil, fmt.Errorf("%w: no path segments for note %q, hoisted note %q", ErrUnresolvable, noteID, hoistedNoteID)
	}
	if contains(best, hoistedNoteID) {
		return best, nil
	}
	// No route passes through the hoisted note; keep what the walk produced.
	return effective, nil
}

func contains(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}

func reverse(ids []string) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
