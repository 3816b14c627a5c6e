package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"redovi/internal/services"
)

// Extensions lists the container extensions picked up by Discover.
var Extensions = []string{".mkv", ".mp4"}

// Discover returns the immediate regular files in dir whose extension is in
// Extensions (case-insensitive), in directory listing order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "batch", "discover", fmt.Sprintf("read %s", dir), err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if matchesExtension(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func matchesExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range Extensions {
		if ext == want {
			return true
		}
	}
	return false
}
