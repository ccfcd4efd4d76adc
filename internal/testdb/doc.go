// Package testdb provides helpers for PostgreSQL integration tests: opening
// a connection from the environment, applying the embedded migrations and
// isolating each test inside a rolled-back transaction.
//
// Tests using this package carry the "integration" build tag and skip when
// no database URL is configured.
package testdb
