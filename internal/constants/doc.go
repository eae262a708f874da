// Package constants collects shared numeric and duration constants for
// the storage, stream, and detection subsystems so they are defined
// exactly once and reused by both implementation and tests.
package constants
