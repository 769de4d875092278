package migrations

import "embed"

// FS holds the schema files in apply order (lexical by file name).
//
//go:embed *.sql
var FS embed.FS
