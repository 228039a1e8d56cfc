// Package httpapi exposes the daemon's HTTP surface: the inbound message
// webhook, the OAuth redirect callback, and health probes. Webhook handling
// is serialized per sender with a keyed mutex so near-simultaneous deliveries
// cannot interleave inside one conversation.
package httpapi
