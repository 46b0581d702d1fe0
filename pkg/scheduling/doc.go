// Package scheduling implements the Scheduling Manager (§4.9): it owns the
// current content descriptor set, drives the filter pipeline and lottery
// scheduler to pick what plays next, hands the winner to the Display
// Manager, and re-runs itself on a per-item duration timer.
package scheduling
