// Package cache implements the content cache (§4.5). Cache handles
// naming, on-disk placement, and strict/loose cache-hit checks for a
// single content item; Manager runs a fixed-size worker pool draining an
// in-memory queue of items awaiting download, skipping anything already
// cached or mid-download and retrying CachingURLError after a backoff.
package cache
