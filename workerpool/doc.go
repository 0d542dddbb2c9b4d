// Package workerpool implements the Worker Table (spec.md §4.5): a
// fixed-capacity fleet of worker process handles, an idle free-list kept
// as a FIFO for round-robin load spreading, and the scaling/recycling
// policy that decides when to spawn, stop, or reap a worker.
//
// The free-list is github.com/eapache/queue, the same lock-free-adjacent
// FIFO the teacher uses for task dispatch in
// internal/concurrency/executor.go — here it holds *Worker instead of
// closures.
package workerpool
