// Package repository is the relational persistence boundary for the
// recorder core: stream configuration, recording metadata, detections,
// and zones. It is a SQLite-backed implementation of the typed query
// surface consumed by the Storage Controller, Stream Supervisor, and
// Detection Worker — none of those packages touch database/sql
// directly.
package repository
