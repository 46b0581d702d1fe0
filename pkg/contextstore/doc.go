// Package contextstore implements the Context & Constraints parser and
// its backing persistence (§4.6): Store appends sensor, touch, pageview,
// and content-trigger records to a SQLite-backed history; Parser answers
// the subscription-update and sensor-update RPC endpoints, writing
// context and waking the Scheduling Manager as updates arrive.
package contextstore
