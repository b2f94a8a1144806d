// Package migrations applies the selector's schema: the tokens table in
// PostgreSQL and the selection_runs history table in ClickHouse.
package migrations

import "embed"

// PostgresFS holds the tokens schema, applied in file name order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the selection history schema, one statement per
// semicolon.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
