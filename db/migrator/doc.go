// Package migrator applies and reverts SQL schema migrations.
//
// Features:
// - Loads migration scripts from a directory with structured naming (`{name}.{up|down}.{ext}`)
// - Orders migrations lexically by name, so a timestamp prefix determines execution order
// - Tracks applied migrations in a JSON history file, written atomically
// - Selects a plan from a signed step count: forward (> 0), reverse (< 0) or status (0)
// - Runs each migration in its own transaction, committing only after history is saved
package migrator
