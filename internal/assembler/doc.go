// Package assembler builds command documents from knowledge modules.
//
// A run compresses every module with the compression engine, substitutes
// the results into templates at {{<module key>}} placeholders and replaces
// {SHARED_INTELLIGENCE} with the registry index. Modules are processed
// concurrently but results are applied in key order, so the same inputs
// always produce the same documents.
//
// Before compression each module is scrubbed for secrets and its
// "@config:ID" and "@target:ID" references are resolved, so referenced
// configuration takes part in extraction.
package assembler
