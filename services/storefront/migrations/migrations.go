// Package migrations embeds the storefront schema.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
