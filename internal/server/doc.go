// Package server implements the HTTP server and HTTP handlers for
// the file-share service. It wires together the HTTP routes and their
// dependencies (credential store, blob store, database) and provides
// lifecycle helpers used by tests and the production binary.
package server
