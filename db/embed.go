// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL statements for the products and product_discounts
// tables. Every statement is safe to run repeatedly.
//
//go:embed migrations/001_schema.sql
var Schema string
