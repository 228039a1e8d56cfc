// Package daemon ties the HTTP surface and the pipeline launcher into a
// single lifecycle with flock-based locking to prevent multiple instances
// from sharing one database and staging directory.
package daemon
