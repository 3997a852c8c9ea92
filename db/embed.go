// Package db provides the embedded catalog schema and seed document.
package db

import _ "embed"

// Schema contains the DDL for the products table.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the catalog document shipped with the service. It is also
// the input of cmd/seed-db.
//
//go:embed seed/products.json
var SeedProducts []byte
