// Package sqlitestore provides a SQLite implementation of the store
// interfaces using the pure-Go modernc.org/sqlite driver. It is intended
// for local development and tests where a PostgreSQL server is not
// available; the schema is created on open.
package sqlitestore
