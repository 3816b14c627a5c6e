// Package history persists a record of every run and the files it processed
// in a local SQLite database so operators can review past outcomes with
// `redovi history`.
package history
