// Package diag defines the diagnostic model shared by the parser, the
// interpreter front-end and the repair search.
//
// Diagnostic is the central record: Severity, a numeric Code with a stable
// string ID, a short Message, a Primary span and optional Notes and Fixes.
// A Fix is data only; the repair command attaches one describing the flipped
// mnemonic, and nothing in this package applies it.
//
// Producers emit through a Reporter (usually BagReporter) so that emission is
// decoupled from storage. Bag keeps diagnostics in emission order up to a
// limit and supports sorting and deduplication for deterministic output.
package diag
