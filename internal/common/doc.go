// Package common provides small, dependency-free concurrency
// primitives shared by every long-lived worker in the service: the
// CancellationToken/PollJoin bounded-join helpers used by the Storage
// Controller, the schedule monitor, and the detection Manager to shut
// down within a bounded deadline.
package common
