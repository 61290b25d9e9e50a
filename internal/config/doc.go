// Package config loads, normalizes, and validates camroll configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DROPBOX_ACCESS_TOKEN. The Config type centralizes every knob the CLI and the
// organizer engine need, so Dropbox credentials, polling bounds, and local
// state directories are discovered in one pass and handed to collaborators
// explicitly.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical remote roots, and clear validation errors.
package config
