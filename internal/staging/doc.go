// Package staging finds and removes workspaces left behind by runs that were
// killed before they could clean up.
package staging
