package types

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SessionKey struct {
	UserID int64
	ChatID int64
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

// DataBag accumulates form data between turns of a conversation.
type DataBag struct {
	Photos        []string   `json:"photos,omitempty"`
	Videos        []string   `json:"videos,omitempty"`
	Audios        []string   `json:"audios,omitempty"`
	Texts         []string   `json:"texts,omitempty"`
	MessageIDs    []int      `json:"message_ids,omitempty"`
	TargetUserID  int64      `json:"target_user_id,omitempty"`
	BlackoutStart *time.Time `json:"blackout_start,omitempty"`
}

func NewAdBag() DataBag {
	return DataBag{
		Photos:     []string{},
		Videos:     []string{},
		Audios:     []string{},
		Texts:      []string{},
		MessageIDs: []int{},
	}
}

func (d DataBag) IsEmpty() bool {
	return len(d.Photos) == 0 && len(d.Videos) == 0 && len(d.Audios) == 0 && len(d.Texts) == 0
}

// MediaRefs returns photos, then videos, then audios.
func (d DataBag) MediaRefs() []string {
	refs := make([]string, 0, len(d.Photos)+len(d.Videos)+len(d.Audios))
	refs = append(refs, d.Photos...)
	refs = append(refs, d.Videos...)
	refs = append(refs, d.Audios...)
	return refs
}

func (d DataBag) CombinedText() string {
	return strings.Join(d.Texts, "\n")
}

// Clone copies the slices so a stored bag is never aliased by a caller.
func (d DataBag) Clone() DataBag {
	out := d
	out.Photos = append([]string(nil), d.Photos...)
	out.Videos = append([]string(nil), d.Videos...)
	out.Audios = append([]string(nil), d.Audios...)
	out.Texts = append([]string(nil), d.Texts...)
	out.MessageIDs = append([]int(nil), d.MessageIDs...)
	if d.BlackoutStart != nil {
		t := *d.BlackoutStart
		out.BlackoutStart = &t
	}
	return out
}

type Session struct {
	State     StateTag  `json:"state"`
	Data      DataBag   `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StateStore keeps one conversation session per key. A missing entry is the
// idle state with an empty bag.
type StateStore interface {
	Get(ctx context.Context, key SessionKey) (StateTag, DataBag, error)
	Set(ctx context.Context, key SessionKey, state StateTag, data DataBag) error
	Clear(ctx context.Context, key SessionKey) error
}

type Contact struct {
	PhoneNumber string
	UserID      int64
}

// Event is an inbound update reduced to what the workflows consume.
type Event struct {
	Kind       EventKind
	UserID     int64
	ChatID     int64
	Private    bool
	MessageID  int
	Text       string
	Command    string
	Args       []string
	Media      MediaKind
	MediaRef   string
	Contact    *Contact
	CallbackID string
	Data       string
	Profile    Profile
}

func (e *Event) Key() SessionKey {
	return SessionKey{UserID: e.UserID, ChatID: e.ChatID}
}
