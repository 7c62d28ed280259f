// Package sqldocs exposes the event-log DDL bundles directly from the docs
// tree so the store drivers and the documentation never drift apart.
package sqldocs

import (
	_ "embed"
	"strings"
)

// SQLite contains the event-log SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the event-log Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string

// Statements splits a bundle into individual executable statements.
func Statements(bundle string) []string {
	parts := strings.Split(bundle, ";")
	stmts := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			stmts = append(stmts, trimmed)
		}
	}
	return stmts
}
