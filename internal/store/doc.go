// Package store provides SQLite-backed persistence for binnings and filled
// histograms.
//
// Binnings live in a directory-structured namespace: each one is stored
// under a slash-separated path, and Dir gives binning.SaveTo and
// binning.LoadFrom a view rooted at a prefix. Histograms belong to a run and
// reference the binning they were filled over.
//
// # Ordering
//
// Runs are ordered by a logical sequence number, never by timestamps.
// Listing queries sort by seq, then by name COLLATE BINARY, so output is
// identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
