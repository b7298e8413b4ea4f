// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds every *.up.sql file in this directory, at the root of the FS.
//
//go:embed *.sql
var FS embed.FS
