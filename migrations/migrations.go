package migrations

import "embed"

// FS содержит SQL-миграции для golang-migrate
//
//go:embed *.sql
var FS embed.FS
