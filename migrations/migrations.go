// Package migrations embeds the SQL schema files applied at startup.
package migrations

import "embed"

// FS holds every *.sql file in lexical order of application.
//
//go:embed *.sql
var FS embed.FS
