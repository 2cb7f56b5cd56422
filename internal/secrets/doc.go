// Package secrets detects and redacts credentials in guideline content.
//
// Module text is scrubbed before reference resolution and compression so a
// token pasted into a guideline never reaches a generated command file, an
// HTTP response, or an MCP tool result. Findings carry rule IDs and positions
// but never the matched value.
//
// Rules whose pattern has a capture group redact only that group, which keeps
// YAML keys in configuration blocks intact:
//
//	api_key: abcdefghijklmnop1234   ->   api_key: [REDACTED]
//
// Template placeholders such as ${API_KEY} and <your-token> are allowed by
// the default configuration.
package secrets
