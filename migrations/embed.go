// Package migrations embeds the goose SQL migrations for both databases:
// server/ holds the reference remote store schema, local/ the client-side
// draft mirror.
package migrations

import "embed"

// FS contains every migration file, rooted at this directory.
//
//go:embed server/*.sql local/*.sql
var FS embed.FS
