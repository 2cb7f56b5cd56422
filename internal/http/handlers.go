package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/modules"
	"github.com/fyrsmithlabs/guild/internal/reference"
)

const defaultModuleName = "module"

// handleHealth returns server status.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:          "ok",
		Version:         s.config.Version,
		RegistryEntries: s.registry.Len(),
	})
}

// handleCompress compresses a single module supplied in the request body.
// Empty content compresses to an empty result.
func (s *Server) handleCompress(c echo.Context) error {
	ctx := c.Request().Context()

	var req CompressRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid compress request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var priority compression.Priority
	if req.Priority != "" {
		p, ok := compression.ParsePriority(req.Priority)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown priority: "+req.Priority)
		}
		priority = p
	}

	mode := s.config.Mode
	if req.Mode != "" {
		mode = compression.Mode(strings.ToLower(req.Mode))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultModuleName
	}

	a, err := assembler.New(s.engine,
		assembler.WithRegistry(s.registry),
		assembler.WithScrubber(s.scrubber),
		assembler.WithLogger(s.logger),
		assembler.WithMode(mode),
		assembler.WithLevel(compression.Level(strings.ToLower(req.Level))),
		assembler.WithConcurrency(1),
	)
	if err != nil {
		if errors.Is(err, compression.ErrUnknownMode) || errors.Is(err, compression.ErrUnknownLevel) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "compression unavailable")
	}

	out, err := a.Compress(ctx, []*modules.Module{{
		Module: compression.Module{
			Name:     name,
			Content:  req.Content,
			Priority: priority,
			Category: req.Category,
		},
		Key: name,
	}})
	if err != nil {
		s.logger.Error(ctx, "compression failed", zap.String("module", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "compression failed")
	}

	m := out[0]
	s.prom.observe(m.Result, m.Redactions)

	return c.JSON(http.StatusOK, CompressResponse{
		Module:         m.Result.ModuleName,
		Level:          m.Result.Level,
		Content:        m.Embedded,
		Summary:        m.Result.Summary,
		Report:         m.Result.Report,
		OriginalSize:   m.Result.OriginalSize,
		CompressedSize: m.Result.CompressedSize,
		Redactions:     m.Redactions,
		Unresolved:     m.Unresolved,
	})
}

// handleValidate reports how much structure content carries without
// compressing it.
func (s *Server) handleValidate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	elements := s.engine.Extract(req.Content)
	var report *compression.PreservationReport
	if req.MCP {
		report = compression.ValidateMCP(elements)
	} else {
		report = compression.ValidateFor(req.Category, elements)
	}

	return c.JSON(http.StatusOK, ValidateResponse{
		Report:     report,
		Annotation: report.Annotation(),
	})
}

// handleResolve substitutes registry references in text. The result is
// scrubbed because registry bodies are returned verbatim.
func (s *Server) handleResolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resolved := s.resolver.Resolve(req.Text, s.registry)
	scrubbed := s.scrubber.Scrub(resolved)

	return c.JSON(http.StatusOK, ResolveResponse{
		Text:       scrubbed.Scrubbed,
		Unresolved: s.resolver.Unresolved(resolved),
		Redactions: scrubbed.TotalFindings,
	})
}

// handleRegistry lists the shared configuration entries.
func (s *Server) handleRegistry(c echo.Context) error {
	entries := s.registry.Entries()
	resp := RegistryResponse{Entries: make([]reference.Entry, 0, len(entries))}
	for _, e := range entries {
		e.Body = s.scrubber.Scrub(e.Body).Scrubbed
		resp.Entries = append(resp.Entries, e)
	}
	for _, inv := range s.registry.Invalid() {
		resp.Invalid = append(resp.Invalid, InvalidEntry{ID: inv.ID, Error: inv.Err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}
