// Package fallback holds the in-memory dataset served when the store is
// not configured or a read against it fails.
//
// A Dataset is created once at process start and lives until exit. It is
// never merged with store data: each request is answered entirely from one
// source. Tests construct a fresh Dataset with New.
package fallback
