package types

// StateTag names the current step of a conversation. Tags are namespaced per
// workflow so two workflows never share a value.
type StateTag string

const (
	StateIdle StateTag = ""

	StateAwaitingContact StateTag = "registration:awaiting_contact"

	StateAdCollecting StateTag = "ad:collecting"
	StateAdConfirming StateTag = "ad:confirming"

	StateExtendAwaitingChoice     StateTag = "extend:awaiting_choice"
	StateExtendAwaitingCustomDate StateTag = "extend:awaiting_custom_date"

	StateBlackoutAwaitingStart StateTag = "blackout:awaiting_start"
	StateBlackoutAwaitingEnd   StateTag = "blackout:awaiting_end"
)

var knownStates = map[StateTag]struct{}{
	StateIdle:                     {},
	StateAwaitingContact:          {},
	StateAdCollecting:             {},
	StateAdConfirming:             {},
	StateExtendAwaitingChoice:     {},
	StateExtendAwaitingCustomDate: {},
	StateBlackoutAwaitingStart:    {},
	StateBlackoutAwaitingEnd:      {},
}

func (s StateTag) Valid() bool {
	_, ok := knownStates[s]
	return ok
}

type EventKind string

const (
	EventCommand EventKind = "command"
	EventMessage EventKind = "message"
	EventButton  EventKind = "button"
)

type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaPhoto MediaKind = "photo"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)
