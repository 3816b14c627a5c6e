// Package preflight provides readiness checks for the filesystem paths a
// run reads and writes.
//
// These checks run in two contexts:
//   - `redovi run` calls RunAll before the first file starts; a failure stops
//     the run before any tool is launched.
//   - `redovi check` shows the same results next to the dependency table.
package preflight
