package migrations

import "embed"

// Migrations holds the embedded schema migration files for the client
// directory database.
//
//go:embed *.sql
var Migrations embed.FS
