// Package db embeds the Postgres schema: coupons, their per-kind join
// tables, inventory tables and api keys.
package db

import _ "embed"

// Schema is idempotent DDL, executed on every start.
//
//go:embed migrations/001_schema.sql
var Schema string
