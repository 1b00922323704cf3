package postgres

import _ "embed"

// Schema is the catalog DDL, applied by migrations tooling in deployments
// and directly by integration suites.
//
//go:embed schema.sql
var Schema string
