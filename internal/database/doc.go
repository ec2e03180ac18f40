// Package database persists analysis reports and exports them in flat row
// form. SQLite is the default backend; Postgres and an in-memory store are
// available through the same interface.
package database
