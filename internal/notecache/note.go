package notecache

import (
	"context"
	"sort"
	"strings"

	"notenav/internal/types"
)

// Note is a view of one cached note. Its accessors read the cache at call
// time, so a Note never holds stale edges.
type Note struct {
	id    string
	cache *Cache
}

// NotePathRecord is one candidate route to a note, with the facts used to rank it.
type NotePathRecord struct {
	NotePath        []string
	IsInHoistedTree bool
	IsArchived      bool
	IsSearch        bool
	IsHidden        bool
}

func (n *Note) ID() string {
	return n.id
}

// Data returns a copy of the stored note.
func (n *Note) Data() types.Note {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	note := n.cache.notes[n.id]
	if note == nil {
		return types.Note{ID: n.id}
	}
	copy := *note
	copy.Attributes = append([]types.Attribute(nil), note.Attributes...)
	return copy
}

func (n *Note) Title() string {
	return n.Data().Title
}

func (n *Note) Type() types.NoteType {
	return n.Data().Type
}

func (n *Note) Mime() string {
	return n.Data().Mime
}

func (n *Note) IsProtected() bool {
	return n.Data().IsProtected
}

// ParentNoteIDs returns the parents, non-archived visible ones first.
func (n *Note) ParentNoteIDs() []string {
	return n.cache.SortedParentNoteIDs(n.id)
}

// ChildNoteIDs returns the children ordered by branch position.
func (n *Note) ChildNoteIDs() []string {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	branches := n.cache.childBranchesLocked(n.id)
	out := make([]string, 0, len(branches))
	for _, branch := range branches {
		out = append(out, branch.NoteID)
	}
	return out
}

func (n *Note) HasChildren() bool {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return len(n.cache.byParent[n.id]) > 0
}

// ParentBranch returns the branch placing this note under parentID.
func (n *Note) ParentBranch(parentID string) *types.Branch {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	branch := n.cache.branchLocked(parentID, n.id)
	if branch == nil {
		return nil
	}
	copy := *branch
	return &copy
}

func (n *Note) OwnedAttributes() []types.Attribute {
	return n.Data().Attributes
}

// Attributes returns owned attributes plus those inherited from ancestors.
func (n *Note) Attributes() []types.Attribute {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.attributesLocked(n.id, map[string]struct{}{})
}

func (n *Note) HasLabel(name string) bool {
	_, ok := n.label(name)
	return ok
}

func (n *Note) LabelValue(name string) string {
	value, _ := n.label(name)
	return value
}

// IsLabelTruthy reports whether the label exists and its value is not "false".
func (n *Note) IsLabelTruthy(name string) bool {
	value, ok := n.label(name)
	return ok && strings.ToLower(strings.TrimSpace(value)) != "false"
}

func (n *Note) label(name string) (string, bool) {
	for _, attr := range n.Attributes() {
		if attr.Type == types.AttributeTypeLabel && attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// RelationTarget returns the note id the named relation points to.
func (n *Note) RelationTarget(name string) string {
	for _, attr := range n.Attributes() {
		if attr.Type == types.AttributeTypeRelation && attr.Name == name {
			return attr.Value
		}
	}
	return ""
}

func (n *Note) IsArchived() bool {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.isArchivedLocked(n.id)
}

// IsHiddenCompletely reports whether every route to the note passes through _hidden.
func (n *Note) IsHiddenCompletely() bool {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.isHiddenCompletelyLocked(n.id, map[string]struct{}{})
}

func (n *Note) HasAncestor(ancestorID string) bool {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.hasAncestorLocked(n.id, ancestorID, map[string]struct{}{})
}

func (n *Note) IsInHiddenSubtree() bool {
	return n.id == types.HiddenNoteID || n.HasAncestor(types.HiddenNoteID)
}

// IsLaunchBarConfig reports whether the note belongs to the launch bar configuration.
func (n *Note) IsLaunchBarConfig() bool {
	return n.Type() == types.NoteTypeLauncher || types.IsLaunchBarConfigNoteID(n.id)
}

func (n *Note) IsOptions() bool {
	return strings.HasPrefix(n.id, types.OptionsRootNoteID)
}

// AllNotePaths returns every route from root to the note, skipping routes
// through search notes.
func (n *Note) AllNotePaths() [][]string {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.allNotePathsLocked(n.id, map[string]struct{}{})
}

func (n *Note) SortedNotePathRecords(hoistedNoteID, activeNotePath string) []NotePathRecord {
	n.cache.mu.RLock()
	defer n.cache.mu.RUnlock()
	return n.cache.sortedNotePathRecordsLocked(n.id, hoistedNoteID, activeNotePath)
}

func (n *Note) BestNotePath(hoistedNoteID, activeNotePath string) []string {
	return n.cache.BestNotePath(n.id, hoistedNoteID, activeNotePath)
}

func (n *Note) BestNotePathString(hoistedNoteID string) string {
	return strings.Join(n.BestNotePath(hoistedNoteID, ""), "/")
}

func (n *Note) Blob(ctx context.Context) (*types.Blob, error) {
	return n.cache.Blob(ctx, n.id)
}

func (n *Note) Attachments(ctx context.Context) ([]*types.Attachment, error) {
	return n.cache.Attachments(ctx, n.id)
}

func (c *Cache) branchLocked(parentID, childID string) *types.Branch {
	for branchID := range c.byChild[childID] {
		branch := c.branches[branchID]
		if branch != nil && branch.ParentNoteID == parentID {
			return branch
		}
	}
	return nil
}

func (c *Cache) parentIDsLocked(id string) []string {
	out := make([]string, 0, len(c.byChild[id]))
	for branchID := range c.byChild[id] {
		if branch := c.branches[branchID]; branch != nil {
			out = append(out, branch.ParentNoteID)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Cache) childBranchesLocked(id string) []*types.Branch {
	out := make([]*types.Branch, 0, len(c.byParent[id]))
	for branchID := range c.byParent[id] {
		if branch := c.branches[branchID]; branch != nil {
			out = append(out, branch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].NoteID < out[j].NoteID
	})
	return out
}

// sortedParentsLocked orders parents by id, demoting parents reached through a
// virtual branch, parents that are archived or hidden completely, and parents
// not in the cache.
func (c *Cache) sortedParentsLocked(id string) []string {
	type candidate struct {
		id      string
		demoted bool
	}
	candidates := make([]candidate, 0, len(c.byChild[id]))
	for branchID := range c.byChild[id] {
		branch := c.branches[branchID]
		if branch == nil {
			continue
		}
		parentID := branch.ParentNoteID
		_, cached := c.notes[parentID]
		demoted := strings.HasPrefix(branch.ID, types.VirtualBranchPrefix) ||
			!cached ||
			c.isArchivedLocked(parentID) ||
			c.isHiddenCompletelyLocked(parentID, map[string]struct{}{})
		candidates = append(candidates, candidate{id: parentID, demoted: demoted})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].demoted != candidates[j].demoted {
			return !candidates[i].demoted
		}
		return candidates[i].id < candidates[j].id
	})
	out := make([]string, 0, len(candidates))
	for _, item := range candidates {
		out = append(out, item.id)
	}
	return out
}

// attributesLocked collects owned attributes and the inheritable attributes of
// parents. Nothing is inherited into root or _hidden, and search parents are skipped.
func (c *Cache) attributesLocked(id string, visiting map[string]struct{}) []types.Attribute {
	note := c.notes[id]
	if note == nil {
		return nil
	}
	if _, ok := visiting[id]; ok {
		return nil
	}
	visiting[id] = struct{}{}
	defer delete(visiting, id)

	out := append([]types.Attribute(nil), note.Attributes...)
	added := map[string]struct{}{}
	for _, attr := range out {
		added[attr.ID] = struct{}{}
	}
	if id == types.RootNoteID || id == types.HiddenNoteID {
		return out
	}
	for _, parentID := range c.parentIDsLocked(id) {
		parent := c.notes[parentID]
		if parent == nil || parent.Type == types.NoteTypeSearch {
			continue
		}
		for _, attr := range c.attributesLocked(parentID, visiting) {
			if !attr.IsInheritable {
				continue
			}
			if _, ok := added[attr.ID]; ok && attr.ID != "" {
				continue
			}
			added[attr.ID] = struct{}{}
			out = append(out, attr)
		}
	}
	return out
}

func (c *Cache) isArchivedLocked(id string) bool {
	for _, attr := range c.attributesLocked(id, map[string]struct{}{}) {
		if attr.Type == types.AttributeTypeLabel && attr.Name == types.LabelArchived {
			return true
		}
	}
	return false
}

func (c *Cache) isHiddenCompletelyLocked(id string, visiting map[string]struct{}) bool {
	switch id {
	case types.HiddenNoteID:
		return true
	case types.RootNoteID:
		return false
	}
	if _, ok := visiting[id]; ok {
		return true
	}
	visiting[id] = struct{}{}
	for branchID := range c.byChild[id] {
		branch := c.branches[branchID]
		if branch == nil {
			continue
		}
		parentID := branch.ParentNoteID
		if parentID == types.RootNoteID {
			return false
		}
		parent := c.notes[parentID]
		if parentID == types.HiddenNoteID || parent == nil || parent.Type == types.NoteTypeSearch {
			continue
		}
		if !c.isHiddenCompletelyLocked(parentID, visiting) {
			return false
		}
	}
	return true
}

func (c *Cache) hasAncestorLocked(id, ancestorID string, visited map[string]struct{}) bool {
	if id == ancestorID {
		return true
	}
	if _, ok := visited[id]; ok {
		return false
	}
	visited[id] = struct{}{}
	for branchID := range c.byChild[id] {
		branch := c.branches[branchID]
		if branch == nil {
			continue
		}
		if c.hasAncestorLocked(branch.ParentNoteID, ancestorID, visited) {
			return true
		}
	}
	return false
}

func (c *Cache) allNotePathsLocked(id string, visiting map[string]struct{}) [][]string {
	if id == types.RootNoteID {
		return [][]string{{types.RootNoteID}}
	}
	if _, ok := visiting[id]; ok {
		return nil
	}
	visiting[id] = struct{}{}
	defer delete(visiting, id)

	out := make([][]string, 0)
	for _, parentID := range c.sortedParentsLocked(id) {
		parent := c.notes[parentID]
		if parent == nil || parent.Type == types.NoteTypeSearch {
			continue
		}
		for _, path := range c.allNotePathsLocked(parentID, visiting) {
			full := make([]string, 0, len(path)+1)
			full = append(full, path...)
			out = append(out, append(full, id))
		}
	}
	return out
}

func (c *Cache) sortedNotePathRecordsLocked(id, hoistedNoteID, activeNotePath string) []NotePathRecord {
	if hoistedNoteID == "" {
		hoistedNoteID = types.RootNoteID
	}
	isHoistedRoot := hoistedNoteID == types.RootNoteID
	paths := c.allNotePathsLocked(id, map[string]struct{}{})
	records := make([]NotePathRecord, 0, len(paths))
	for _, path := range paths {
		record := NotePathRecord{NotePath: path, IsInHoistedTree: isHoistedRoot}
		for _, segment := range path {
			if segment == hoistedNoteID {
				record.IsInHoistedTree = true
			}
			if segment == types.HiddenNoteID {
				record.IsHidden = true
			}
			if c.isArchivedLocked(segment) {
				record.IsArchived = true
			}
			if note := c.notes[segment]; note != nil && note.Type == types.NoteTypeSearch {
				record.IsSearch = true
			}
		}
		records = append(records, record)
	}

	var activeSegments []string
	if activeNotePath != "" {
		activeSegments = strings.Split(activeNotePath, "/")
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if activeSegments != nil {
			aOverlap := prefixMatchLength(a.NotePath, activeSegments)
			bOverlap := prefixMatchLength(b.NotePath, activeSegments)
			if aOverlap != bOverlap {
				return aOverlap > bOverlap
			}
		}
		if a.IsInHoistedTree != b.IsInHoistedTree {
			return a.IsInHoistedTree
		}
		if a.IsArchived != b.IsArchived {
			return !a.IsArchived
		}
		if a.IsHidden != b.IsHidden {
			return !a.IsHidden
		}
		if a.IsSearch != b.IsSearch {
			return !a.IsSearch
		}
		return len(a.NotePath) < len(b.NotePath)
	})
	return records
}

func prefixMatchLength(path, target []string) int {
	for i, segment := range path {
		if i >= len(target) || segment != target[i] {
			return i
		}
	}
	return len(path)
}
