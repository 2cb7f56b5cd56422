// Package reference parses the shared-configuration registry and resolves
// "@config:ID" and "@target:ID" references against it.
//
// The registry document is a markdown file of entries shaped as
//
//	### AG001: Agent Mandate
//	```yaml
//	key: value
//	```
//
// Entries fenced as yaml are configurations and are checked with yaml.v3;
// every other fence is a target whose body is substituted as plain text.
// A Registry is read-only after construction and safe for concurrent use.
//
// References inside registry entries are expanded once when the registry is
// built; entries on a reference cycle are rejected. Resolution then replaces
// known references only, placing configuration blocks on their own lines.
// Unknown references stay in the text literally so callers can find them
// with Resolver.Unresolved, and resolving resolved text is a no-op.
package reference
