// Package eventbus is the in-process topic pub/sub used to announce
// storage pressure changes and cleanup results (spec.md §6). It carries
// no wire protocol — delivery is a direct in-process function call, not
// a network transport (wire-protocol semantics are an explicit
// Non-goal).
package eventbus
