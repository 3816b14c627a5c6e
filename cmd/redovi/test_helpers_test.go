package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ffmpegStub = `#!/bin/sh
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-y" ]; then out="$a"; fi
  prev="$a"
done
if [ -z "$out" ]; then
  echo "  Duration: 00:00:10.00, start: 0.000000, bitrate: 1000 kb/s" >&2
  echo "At least one output file must be specified" >&2
  exit 1
fi
echo "frame=10 fps=1.0 size=1kB time=00:00:05.00 bitrate=1.0kbits/s speed=1x" >&2
printf 'data' > "$out"
`

// doviStub fails like dovi_tool does on a non Dolby Vision source when the
// input name contains "NoDV".
const doviStub = `#!/bin/sh
out=""
for a in "$@"; do
  case "$a" in
    *NoDV*) echo "Error: No RPU found" >&2; exit 1 ;;
  esac
done
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
printf 'rpu' > "$out"
`

const mkvmergeStub = `#!/bin/sh
if [ "$1" = "-o" ]; then printf 'mkv' > "$2"; fi
`

type cliTestEnv struct {
	baseDir    string
	binDir     string
	mediaDir   string
	stateDir   string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:    base,
		binDir:     filepath.Join(base, "bin"),
		mediaDir:   filepath.Join(base, "media"),
		stateDir:   filepath.Join(base, "state"),
		configPath: filepath.Join(base, "config.toml"),
	}
	for _, dir := range []string{env.binDir, env.mediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	writeStub(t, env.binDir, "ffmpeg", ffmpegStub)
	writeStub(t, env.binDir, "dovi_tool", doviStub)
	writeStub(t, env.binDir, "mkvmerge", mkvmergeStub)

	writeTestConfig(t, env, "")
	return env
}

// writeTestConfig writes a config pointing at the stub tools; extra is
// appended verbatim.
func writeTestConfig(t *testing.T, env *cliTestEnv, extra string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
state_dir = %q

[tools]
ffmpeg = %q
dovi_tool = %q
mkvmerge = %q
terminate_grace_seconds = 2

[encoding]
backend = "cpu"
preset = "medium"
quality = 20

[logging]
level = "warn"
%s`,
		filepath.Join(env.baseDir, "logs"),
		env.stateDir,
		filepath.Join(env.binDir, "ffmpeg"),
		filepath.Join(env.binDir, "dovi_tool"),
		filepath.Join(env.binDir, "mkvmerge"),
		extra,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeStub(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func writeMedia(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("source"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", needle, haystack)
	}
}

func requireMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent (stat err=%v)", path, err)
	}
}
