// Package health implements the Public Query API (spec.md §6): a thin
// delegation layer in front of the Storage Controller and Stream
// Supervisor, exposing the five read/trigger operations an operator or
// CLI can call without reaching into either component's internals.
package health
