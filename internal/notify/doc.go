// Package notify delivers chat messages back to the sender through the
// configured messaging gateway. Delivery is best effort: callers log send
// failures but never fail a pipeline stage because of one.
package notify
