// Package compression implements the knowledge-module compression engine.
//
// A module is scanned by six independent extractors (configuration blocks,
// compliance targets, enforcement rules, decision procedures, code blocks and
// MCP optimization patterns), each driven by an injected, immutable
// PatternTable. The extracted Elements are rendered by a summary builder at
// one of four levels and scored by the preservation validator.
//
// # Levels
//
//   - deployment: two longest configuration blocks (compacted), up to four
//     category percentages and one high-priority enforcement block
//   - minimal: first configuration block per label plus percentage rollup
//   - standard: every element kind, with long enforcement prose truncated
//   - comprehensive: currently identical to standard
//
// SelectLevel chooses a level from module metadata with ordered first-match
// rules; critical priority always wins over size.
//
// # Usage
//
//	engine, err := compression.NewEngine(compression.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	result, err := engine.Compress(ctx, &compression.Module{
//	    Name:     "agent-rules",
//	    Content:  text,
//	    Priority: compression.PriorityHigh,
//	}, compression.ModeInstall)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Content)
//
// # Errors
//
// Extraction, summarization and validation never fail. The only errors are
// precondition violations (a nil module, an unknown level or mode), returned
// as *ArgumentError wrapping ErrNilModule, ErrUnknownLevel or ErrUnknownMode.
// A preservation score below the validity threshold is reported in the
// result and logged, but compression output is always returned.
//
// # Concurrency
//
// An Engine and its PatternTable are immutable after construction and safe
// for concurrent use. Compressing the same module twice yields byte-identical
// content and the same report.
package compression
