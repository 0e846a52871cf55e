// Package migrations embeds the SQL schema so the API binary can bring a
// database up to date without shipping loose files.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql
var embedded embed.FS

// FS is the migration file system rooted at the SQL directory.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}
