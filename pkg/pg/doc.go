// Package pg provides an environment-configured, retrying PostgreSQL pool
// connector for the Postgres-backed credential store.
package pg
