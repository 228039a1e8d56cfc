package store

import (
	"strings"
	"time"
)

// State represents the position of a conversation in the upload dialog.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingLink        State = "awaiting_link"
	StateAwaitingAccount     State = "awaiting_account"
	StateAwaitingTitle       State = "awaiting_title"
	StateAwaitingDescription State = "awaiting_description"
	StateAwaitingThumbnail   State = "awaiting_thumbnail"
	StateAwaitingPrivacy     State = "awaiting_privacy"
	StateProcessing          State = "processing"
	StateAddingAccount       State = "adding_account"
	StateRemovingAccount     State = "removing_account"
)

var allStates = []State{
	StateIdle,
	StateAwaitingLink,
	StateAwaitingAccount,
	StateAwaitingTitle,
	StateAwaitingDescription,
	StateAwaitingThumbnail,
	StateAwaitingPrivacy,
	StateProcessing,
	StateAddingAccount,
	StateRemovingAccount,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known conversation states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Visibility is the published video's audience setting.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// DefaultVisibility is applied to new and reset conversations.
const DefaultVisibility = VisibilityPublic

// ParseVisibility converts a string into a known Visibility.
func ParseVisibility(value string) (Visibility, bool) {
	switch Visibility(strings.ToLower(strings.TrimSpace(value))) {
	case VisibilityPublic:
		return VisibilityPublic, true
	case VisibilityUnlisted:
		return VisibilityUnlisted, true
	case VisibilityPrivate:
		return VisibilityPrivate, true
	default:
		return "", false
	}
}

// ThumbnailKind discriminates locally staged artwork from artwork that still
// has to be fetched from a remote URL before the pipeline can use it.
type ThumbnailKind string

const (
	ThumbnailLocal  ThumbnailKind = "local"
	ThumbnailRemote ThumbnailKind = "remote"
)

// ThumbnailRef is an explicit discriminated reference to conversation artwork.
type ThumbnailRef struct {
	Kind  ThumbnailKind
	Value string
}

// LocalThumbnail references an artifact already on disk.
func LocalThumbnail(path string) *ThumbnailRef {
	return &ThumbnailRef{Kind: ThumbnailLocal, Value: path}
}

// RemoteThumbnail references artwork that must be downloaded before use.
func RemoteThumbnail(url string) *ThumbnailRef {
	return &ThumbnailRef{Kind: ThumbnailRemote, Value: url}
}

// IsRemote reports whether the reference still needs to be fetched.
func (r *ThumbnailRef) IsRemote() bool {
	return r != nil && r.Kind == ThumbnailRemote
}

// Account is a named publishing destination with an opaque credential
// reference. The core never inspects the credential contents.
type Account struct {
	ID            int64
	Name          string
	CredentialRef string
	CreatedAt     time.Time
}

// Conversation is the persisted per-sender dialog state plus the draft upload
// fields collected so far.
//
// Description is a pointer because the empty string is a valid, deliberate
// value ("skip" maps to it) distinct from "not collected yet". Revision is a
// row version incremented on every write; background work captures it at
// launch so its terminal reset can tell the record it started from apart
// from one the sender has since rebuilt.
type Conversation struct {
	ID          int64
	Sender      string
	State       State
	SourceURL   string
	AccountID   *int64
	Title       string
	Description *string
	Thumbnail   *ThumbnailRef
	Visibility  Visibility
	Revision    int64
	UpdatedAt   time.Time
}

// Reset returns the conversation to idle and clears every draft field,
// restoring visibility to its default.
func (c *Conversation) Reset() {
	c.State = StateIdle
	c.SourceURL = ""
	c.AccountID = nil
	c.Title = ""
	c.Description = nil
	c.Thumbnail = nil
	c.Visibility = DefaultVisibility
}
