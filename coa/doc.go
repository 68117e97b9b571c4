// Package coa implements a document model and transform engine for
// heraldic coat-of-arms definitions in the Clausewitz-style nested text
// format.
//
// The package covers:
//   - Lexing and parsing of the nested key = value / block / array
//     grammar, including ##META## comment tags carrying editor metadata.
//   - A typed entity graph (Document -> Layer -> Instance) with
//     identifier-addressed operations.
//   - A transform engine: bounding boxes, single and group transforms,
//     and six named rotation modes.
//   - A placement-symmetry engine deriving mirrored, rotated, and tiled
//     copies from stored seed instances without persisting them.
//   - Layer grouping ("containers") with automatic contiguity repair.
//   - Deep-copy snapshots for externally managed undo.
//
// # Round-trip fidelity
//
// Parsing and serialization are inverses for well-formed documents:
// unrecognized layer keys pass through verbatim, metadata tags restore
// identifiers, names, grouping, and symmetry, and derived instances are
// re-expanded from the live configuration on every serialize rather than
// persisted.
//
// # Concurrency
//
// All operations are synchronous and run on the calling goroutine. The
// Document is not internally synchronized; one logical session owns it
// at a time.
package coa
