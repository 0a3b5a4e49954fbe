package notecontext

// Payloads of the events a note context publishes on the bus.

type BeforeNoteSwitchPayload struct {
	NoteContext *NoteContext
}

// NoteSwitchedPayload carries an empty NotePath when the context became empty.
type NoteSwitchedPayload struct {
	NoteContext *NoteContext
	NotePath    string
}

type HoistedNoteChangedPayload struct {
	NoteID string
	NtxID  string
}

// ContextDataChangedPayload has a nil Value when the key was cleared.
type ContextDataChangedPayload struct {
	NoteContext *NoteContext
	Key         DataKey
	Value       ContextData
}

type ReadOnlyTemporarilyDisabledPayload struct {
	NoteContext *NoteContext
}

type SetActiveScreenPayload struct {
	Screen string
}

// WidgetRequest is the payload of the executeWith* commands. The handler
// owning the requested widget calls Resolve with it, or with nil.
type WidgetRequest struct {
	NtxID   string
	Resolve func(widget any)
}
