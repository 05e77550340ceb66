// Package constants centralizes defaults shared across the CLI and the engine.
//
// File permissions, the export filename, expiry windows, and ingest limits live
// here so cmd/ and internal/ packages can reference them without import cycles.
package constants
