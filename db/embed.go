// Package db embeds the PostgreSQL schema used by the postgres storage backend.
package db

import _ "embed"

// Schema holds idempotent DDL for the key-value and receipt tables.
//
//go:embed migrations/001_schema.sql
var Schema string
