// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd004-dependency-graph R1 (edge model);
//
//	docs/ARCHITECTURE § Dependency Grapher.
package types

// EdgeKind identifies the syntax a reference edge was extracted from.
type EdgeKind int

const (
	EdgeImport     EdgeKind = iota // Import or include statement
	EdgeDocLink                    // Relative markdown/doc link
	EdgeConfigPath                 // Path-literal value in a config file
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeImport:
		return "import"
	case EdgeDocLink:
		return "doc-link"
	case EdgeConfigPath:
		return "config-path"
	default:
		return "unknown"
	}
}

// Edge is a directed "references" relation between two files in the snapshot:
// From imports/includes/links To.
type Edge struct {
	From      string   // Referencing file path (relative)
	To        string   // Referenced file path (relative)
	Kind      EdgeKind // Syntax the reference came from
	Reference string   // The literal reference text (module name, link target)
}

// ExternalRef records a reference whose target is not part of the snapshot.
// Dangling references are kept out of the graph but never silently dropped.
//
// Implements: prd004-dependency-graph R2.3.
type ExternalRef struct {
	From      string   // Referencing file path (relative)
	Kind      EdgeKind // Syntax the reference came from
	Reference string   // The unresolved reference text
}
