package conversation

import "tubecast/internal/store"

// Reply is the closed set of outcomes a processed message can produce.
// Callers must switch on the concrete type; there are exactly two.
type Reply interface {
	isReply()
}

// TextReply is a plain-text message for the sender.
type TextReply struct {
	Text string
}

// CreateAccountAction asks the caller to register a new destination account
// and hand the sender off to the external authorization flow.
type CreateAccountAction struct {
	Name string
}

func (TextReply) isReply()           {}
func (CreateAccountAction) isReply() {}

// MediaRef describes inbound attached media already staged on local disk.
type MediaRef struct {
	Path        string
	ContentType string
}

// Result carries the computed next record and the reply to deliver. The
// record must be persisted only when Mutated is set; informational replies
// (help, account listing) leave the conversation untouched.
type Result struct {
	Conversation store.Conversation
	Reply        Reply
	Mutated      bool
}
