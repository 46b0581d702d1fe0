// Package display implements the Display Manager (§4.10): it spawns one
// renderer subprocess per on-screen position, tracks each renderer's
// registration and visibility, and fades the previous occupant of a
// position out once its replacement has finished loading.
package display
