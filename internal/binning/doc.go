// Package binning describes histogram axes and flattens N-dimensional
// coordinates into a single linear bin index.
//
// A Binning is an immutable value: an ordered, strictly increasing list of
// edges plus optional per-bin labels. Every distinct Binning is interned in a
// Registry and receives a small integer ID on first construction, so callers
// can key maps by ID and compare binnings by canonical identity instead of by
// value.
//
// # Identity
//
// Two binnings are the same binning iff their edges and labels match
// exactly. Labels are NFC-normalized before comparison. IDs are assigned in
// discovery order and are never reused within a Registry.
//
// # Bin numbering
//
// FindBin uses the external-axis convention: bin 0 is underflow, bins
// 1..NBins are the real bins, NBins+1 is overflow. Bins are half-open
// [lo, hi), so a value equal to Max is overflow.
//
// # Mapping
//
// Mapper joins 2 or 3 binnings. Map returns -1 for underflow on any axis,
// the product of the bin counts for overflow on any axis, and otherwise the
// row-major flattened zero-based index plus 0.5. The half-unit offset lets a
// one-dimensional index histogram bucket valid cells, underflow and overflow
// by a single fill.
package binning
