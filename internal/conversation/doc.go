// Package conversation implements the multi-turn dialog state machine that
// walks the authorized sender from an idle prompt to a fully described upload.
//
// Process computes the full next conversation record in memory from the
// current record, the inbound message, optional attached media, and the
// account registry; callers persist the result exactly once. Replies are a
// closed union: plain text, or a structured request to start the external
// account-authorization flow. The machine itself never talks to the
// authorization provider and never launches the pipeline; it only signals.
package conversation
