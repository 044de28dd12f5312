// Package pipeline dispatches a stream of records to registered sinks in a
// single synchronous pass.
//
// A Source holds an ordered list of RecordSinks. Each delivered record is
// handed to every sink exactly once, in registration order, and all sinks
// finish before the next record is fetched. GetVar and GetCut wrap an
// expr node in an applier sink, register it and return it so downstream
// ValueSinks (histograms) can attach to it.
//
// Requesting the same node twice registers two appliers that each evaluate
// the node for every record. WithSinkCache switches a Source to returning
// the existing applier for a node ID it has already seen.
//
// Loop drives a RecordReader through a Source. It is single-writer:
// records, sinks and values never cross goroutines.
package pipeline
