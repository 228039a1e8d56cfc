// Package services defines the shared error taxonomy and context plumbing for
// tubecast's external collaborators.
//
// Media tools, the publishing platform, and the messaging transport all fail
// in their own ways; the sentinel errors here let pipeline and handler code
// classify those failures without knowing collaborator internals. Context
// helpers carry sender identities, stage names, and correlation IDs across
// call boundaries for structured logging.
package services
