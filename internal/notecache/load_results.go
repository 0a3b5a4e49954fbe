package notecache

// LoadResults is the payload of entitiesReloaded.
type LoadResults struct {
	DeletedNoteIDs  []string
	ReloadedNoteIDs []string
	BranchIDs       []string
}

func (r LoadResults) IsNoteDeleted(id string) bool {
	return contains(r.DeletedNoteIDs, id)
}

func (r LoadResults) IsNoteReloaded(id string) bool {
	return contains(r.ReloadedNoteIDs, id)
}

func (r LoadResults) IsEmpty() bool {
	return len(r.DeletedNoteIDs) == 0 && len(r.ReloadedNoteIDs) == 0 && len(r.BranchIDs) == 0
}

func contains(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
