// Package migrations embeds the review service schema.
package migrations

import "embed"

// FS holds the forward migrations applied at startup.
//
//go:embed *.up.sql
var FS embed.FS
