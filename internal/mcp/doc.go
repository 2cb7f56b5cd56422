// Package mcp exposes the compression engine over the Model Context Protocol.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and registers compression tools (compress_module, validate_module),
// reference tools (resolve_references, registry_list) and discovery tools
// (tool_search, tool_list). Module content is scrubbed for secrets before
// compression and registry bodies are scrubbed before they are returned.
package mcp
