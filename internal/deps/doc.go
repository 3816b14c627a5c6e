// Package deps checks that the external tools the pipeline invokes are
// installed and reports their versions.
package deps
