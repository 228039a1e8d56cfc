// Package pipeline runs the publish flow for a conversation that has entered
// processing: audio acquisition, thumbnail resolution, still-image render,
// chunked upload, and the terminal reset back to idle. Launches are edge
// triggered and fire-and-forget; progress and results reach the sender only
// through the notifier.
package pipeline
