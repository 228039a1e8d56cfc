// Package publisher uploads rendered videos to the sender's chosen account.
// The YouTube implementation speaks the resumable upload protocol: an
// initiation request carrying the metadata, then chunked PUTs streamed
// straight from the file so memory use stays bounded by the chunk size.
package publisher
