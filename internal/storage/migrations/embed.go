package migrations

import "embed"

// SQLite contains the embedded schema for the SQLite backend.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres contains the embedded schema for the Postgres backend.
//
//go:embed postgres/*.sql
var Postgres embed.FS
