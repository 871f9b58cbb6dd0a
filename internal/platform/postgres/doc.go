// Package postgres provides the PostgreSQL implementation of the store
// interfaces, along with the embedded goose migrations that define the
// schema. It uses the pgx driver through database/sql.
package postgres
