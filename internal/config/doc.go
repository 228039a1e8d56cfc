// Package config loads, normalizes, and validates tubecast configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// Google OAuth client credentials. The Config type centralizes every knob the
// daemon and CLI need: staging and credential directories, the HTTP bind
// address, messaging transport settings, and the external media tool binaries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
