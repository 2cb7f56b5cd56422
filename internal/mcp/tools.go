package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/modules"
	"github.com/fyrsmithlabs/guild/internal/reference"
)

const defaultModuleName = "module"

// addTool records meta in the tool registry and registers h with the MCP
// server, wrapped with metrics and failure logging.
func addTool[In, Out any](s *Server, meta *ToolMetadata, h mcp.ToolHandlerFor[In, Out]) error {
	if err := s.toolRegistry.Register(meta); err != nil {
		return err
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        meta.Name,
		Description: meta.Description,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		done := s.metrics.track(ctx, meta.Name)
		res, out, err := h(ctx, req, args)
		done(err)
		if err != nil {
			s.logger.Warn(ctx, "tool call failed", zap.String("tool", meta.Name), zap.Error(err))
		}
		return res, out, err
	})
	return nil
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	for _, register := range []func() error{
		s.registerCompressionTools,
		s.registerReferenceTools,
		s.registerSearchTools,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// ===== COMPRESSION TOOLS =====

type compressModuleInput struct {
	Name     string `json:"name,omitempty" jsonschema:"Module name used in logs and the result (default: module)"`
	Content  string `json:"content" jsonschema:"Markdown content of the knowledge module"`
	Priority string `json:"priority,omitempty" jsonschema:"Module priority: critical, high, medium or low (default: medium)"`
	Category string `json:"category,omitempty" jsonschema:"Module category; categories containing mcp get the MCP-aware report"`
	Mode     string `json:"mode,omitempty" jsonschema:"Deployment mode used to select the level: install or deployment"`
	Level    string `json:"level,omitempty" jsonschema:"Explicit level overriding mode: deployment, minimal, standard or comprehensive"`
}

type compressModuleOutput struct {
	Module         string                          `json:"module" jsonschema:"Module name"`
	Level          string                          `json:"level" jsonschema:"Compression level applied"`
	Content        string                          `json:"content" jsonschema:"Compressed module with its preservation annotation"`
	Report         *compression.PreservationReport `json:"report" jsonschema:"Preservation report"`
	OriginalSize   int                             `json:"original_size" jsonschema:"Input size in bytes"`
	CompressedSize int                             `json:"compressed_size" jsonschema:"Output size in bytes"`
	Redactions     int                             `json:"redactions" jsonschema:"Secrets redacted before compression"`
	Unresolved     []string                        `json:"unresolved,omitempty" jsonschema:"References the registry could not resolve"`
}

type validateModuleInput struct {
	Content  string `json:"content" jsonschema:"Markdown content to validate"`
	Category string `json:"category,omitempty" jsonschema:"Module category selecting the report variant"`
	MCP      bool   `json:"mcp,omitempty" jsonschema:"Force the MCP-aware report"`
}

type validateModuleOutput struct {
	Report     *compression.PreservationReport `json:"report" jsonschema:"Preservation report"`
	Annotation string                          `json:"annotation" jsonschema:"One-line preservation annotation"`
}

func (s *Server) registerCompressionTools() error {
	err := addTool(s, &ToolMetadata{
		Name:        "compress_module",
		Description: "Compress a knowledge module into its structured summary. Secrets are redacted and registry references resolved before compression.",
		Category:    CategoryCompression,
		Keywords:    []string{"summarize", "shrink", "intelligence", "preservation"},
	}, s.compressModule)
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "validate_module",
		Description: "Score how much structured intelligence a module carries without compressing it.",
		Category:    CategoryCompression,
		Keywords:    []string{"score", "quality", "report", "preservation"},
	}, s.validateModule)
}

func (s *Server) compressModule(ctx context.Context, _ *mcp.CallToolRequest, args compressModuleInput) (*mcp.CallToolResult, compressModuleOutput, error) {
	var priority compression.Priority
	if args.Priority != "" {
		p, ok := compression.ParsePriority(args.Priority)
		if !ok {
			return nil, compressModuleOutput{}, fmt.Errorf("unknown priority %q", args.Priority)
		}
		priority = p
	}
	mode := s.mode
	if args.Mode != "" {
		mode = compression.Mode(strings.ToLower(args.Mode))
	}
	name := strings.TrimSpace(args.Name)
	if name == "" {
		name = defaultModuleName
	}

	a, err := assembler.New(s.engine,
		assembler.WithRegistry(s.registry),
		assembler.WithScrubber(s.scrubber),
		assembler.WithLogger(s.logger),
		assembler.WithMode(mode),
		assembler.WithLevel(compression.Level(strings.ToLower(args.Level))),
		assembler.WithConcurrency(1),
	)
	if err != nil {
		return nil, compressModuleOutput{}, err
	}

	out, err := a.Compress(ctx, []*modules.Module{{
		Module: compression.Module{
			Name:     name,
			Content:  args.Content,
			Priority: priority,
			Category: args.Category,
		},
		Key: name,
	}})
	if err != nil {
		return nil, compressModuleOutput{}, fmt.Errorf("compress %s: %w", name, err)
	}

	c := out[0]
	s.metrics.RecordCompression(ctx, c.Result, c.Redactions)

	output := compressModuleOutput{
		Module:         c.Result.ModuleName,
		Level:          string(c.Result.Level),
		Content:        c.Embedded,
		Report:         c.Result.Report,
		OriginalSize:   c.Result.OriginalSize,
		CompressedSize: c.Result.CompressedSize,
		Redactions:     c.Redactions,
		Unresolved:     c.Unresolved,
	}
	return textResult("Compressed %s at %s level: score %d (%s), %d -> %d bytes",
		output.Module, output.Level, output.Report.Score, output.Report.Quality,
		output.OriginalSize, output.CompressedSize), output, nil
}

func (s *Server) validateModule(_ context.Context, _ *mcp.CallToolRequest, args validateModuleInput) (*mcp.CallToolResult, validateModuleOutput, error) {
	elements := s.engine.Extract(args.Content)
	report := compression.ValidateFor(args.Category, elements)
	if args.MCP {
		report = compression.ValidateMCP(elements)
	}

	output := validateModuleOutput{Report: report, Annotation: report.Annotation()}
	return textResult("Preservation score %d (%s), valid=%t", report.Score, report.Quality, report.Valid), output, nil
}

// ===== REFERENCE TOOLS =====

type resolveReferencesInput struct {
	Text string `json:"text" jsonschema:"Text containing @config:ID and @target:ID references"`
}

type resolveReferencesOutput struct {
	Text       string   `json:"text" jsonschema:"Text with known references substituted"`
	Unresolved []string `json:"unresolved,omitempty" jsonschema:"References left unresolved"`
	Redactions int      `json:"redactions" jsonschema:"Secrets redacted from the output"`
}

type registryListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list entries in this category"`
}

type registryListOutput struct {
	Entries []reference.Entry `json:"entries" jsonschema:"Registry entries sorted by ID"`
	Count   int               `json:"count" jsonschema:"Number of entries returned"`
}

func (s *Server) registerReferenceTools() error {
	err := addTool(s, &ToolMetadata{
		Name:        "resolve_references",
		Description: "Substitute @config:ID and @target:ID references with entries from the shared configuration registry.",
		Category:    CategoryReference,
		Keywords:    []string{"config", "target", "registry", "substitute"},
	}, s.resolveReferences)
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "registry_list",
		Description: "List the shared configuration registry entries.",
		Category:    CategoryReference,
		Keywords:    []string{"config", "target", "shared intelligence"},
	}, s.registryList)
}

func (s *Server) resolveReferences(_ context.Context, _ *mcp.CallToolRequest, args resolveReferencesInput) (*mcp.CallToolResult, resolveReferencesOutput, error) {
	resolved := s.resolver.Resolve(args.Text, s.registry)
	scrubbed := s.scrubber.Scrub(resolved)

	output := resolveReferencesOutput{
		Text:       scrubbed.Scrubbed,
		Unresolved: s.resolver.Unresolved(resolved),
		Redactions: scrubbed.TotalFindings,
	}
	return textResult("%d reference(s) left unresolved", len(output.Unresolved)), output, nil
}

func (s *Server) registryList(_ context.Context, _ *mcp.CallToolRequest, args registryListInput) (*mcp.CallToolResult, registryListOutput, error) {
	output := registryListOutput{Entries: []reference.Entry{}}
	for _, e := range s.registry.Entries() {
		if args.Category != "" && !strings.EqualFold(e.Category, args.Category) {
			continue
		}
		e.Body = s.scrubber.Scrub(e.Body).Scrubbed
		output.Entries = append(output.Entries, e)
	}
	output.Count = len(output.Entries)
	return textResult("Found %d registry entries", output.Count), output, nil
}
