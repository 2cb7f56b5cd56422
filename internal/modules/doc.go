// Package modules loads knowledge modules from a guideline directory.
//
// A module is a markdown file, optionally with YAML frontmatter:
//
//	---
//	name: agent-framework
//	priority: critical
//	category: framework
//	---
//	# Agent Framework Module
//	...
//
// Modules are discovered with a doublestar glob (core/**/*.md by default),
// filtered through .guildignore, and keyed by their path without extension
// so templates can embed them as {{core/agent-framework}}.
package modules
