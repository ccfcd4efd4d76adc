// Package postgres provides PostgreSQL implementations of the generation and
// download stores defined in internal/store, along with the embedded goose
// migrations for their schema.
//
// Stores accept a store.DBTX so they can run against a *sql.DB or inside a
// caller's transaction. Multi-statement operations open their own
// transaction when given a *sql.DB.
package postgres
