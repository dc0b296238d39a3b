package store

import _ "embed"

// Schema is the full schema bootstrap applied by `scheduler init`, mirroring
// db/migrations/0001_init.up.sql (kept as the on-disk copy for operators who
// apply it directly with psql rather than through the binary).
//
//go:embed schema.sql
var Schema string
