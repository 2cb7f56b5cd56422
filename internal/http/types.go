package http

import (
	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/reference"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`

	// RegistryEntries is the number of shared configuration entries loaded.
	RegistryEntries int `json:"registry_entries"`
}

// CompressRequest is the request body for POST /api/v1/compress.
type CompressRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Priority string `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`

	// Mode selects the level from the priority; ignored when Level is set.
	Mode  string `json:"mode,omitempty"`
	Level string `json:"level,omitempty"`
}

// CompressResponse is the response body for POST /api/v1/compress.
type CompressResponse struct {
	Module         string                          `json:"module"`
	Level          compression.Level               `json:"level"`
	Content        string                          `json:"content"`
	Summary        string                          `json:"summary"`
	Report         *compression.PreservationReport `json:"report"`
	OriginalSize   int                             `json:"original_size"`
	CompressedSize int                             `json:"compressed_size"`
	Redactions     int                             `json:"redactions"`
	Unresolved     []string                        `json:"unresolved,omitempty"`
}

// ValidateRequest is the request body for POST /api/v1/validate.
type ValidateRequest struct {
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`

	// MCP forces the MCP-aware report regardless of category.
	MCP bool `json:"mcp,omitempty"`
}

// ValidateResponse is the response body for POST /api/v1/validate.
type ValidateResponse struct {
	Report     *compression.PreservationReport `json:"report"`
	Annotation string                          `json:"annotation"`
}

// ResolveRequest is the request body for POST /api/v1/resolve.
type ResolveRequest struct {
	Text string `json:"text"`
}

// ResolveResponse is the response body for POST /api/v1/resolve.
type ResolveResponse struct {
	Text       string   `json:"text"`
	Unresolved []string `json:"unresolved,omitempty"`
	Redactions int      `json:"redactions"`
}

// RegistryResponse is the response body for GET /api/v1/registry.
type RegistryResponse struct {
	Entries []reference.Entry `json:"entries"`
	Invalid []InvalidEntry    `json:"invalid,omitempty"`
}

// InvalidEntry is a registry definition that was rejected.
type InvalidEntry struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}
