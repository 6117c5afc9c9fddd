// db/migrations/embed.go

package migrations

import "embed"

//go:embed 000001_create_users.up.sql
var UsersSchemaUp string

//go:embed 000001_create_users.down.sql
var UsersSchemaDown string

// SQLFiles is the golang-migrate source used by the migrate command.
//
//go:embed *.sql
var SQLFiles embed.FS
