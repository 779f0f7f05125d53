package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("\x00asm"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}

	return path
}

func TestIdentifierFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "conforming", path: "/plugins/plug_echo.wasm", want: "echo"},
		{name: "underscore and dash", path: "plug_key-value_store.wasm", want: "key-value_store"},
		{name: "missing prefix", path: "/plugins/echo.wasm", want: ""},
		{name: "wrong extension", path: "/plugins/plug_echo.wat", want: ""},
		{name: "directory ignored by caller", path: "/plugins/plug_echo.wasm.bak", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IdentifierFromPath(tt.path); got != tt.want {
				t.Errorf("IdentifierFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestScanFiltersAndOrders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "plug_echo.wasm")
	writeFile(t, dir, "plug_counter.wasm")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "echo.wasm") // no prefix, not a candidate
	if err := os.Mkdir(filepath.Join(dir, "plug_dir.wasm"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got := NewScanner(dir).Scan()

	if len(got) != 2 {
		t.Fatalf("Scan found %d candidates, want 2: %+v", len(got), got)
	}
	// lexical file order within one directory.
	if got[0].Identifier != "counter" || got[1].Identifier != "echo" {
		t.Errorf("order = [%s %s], want [counter echo]", got[0].Identifier, got[1].Identifier)
	}
	for _, c := range got {
		if !filepath.IsAbs(c.Path) {
			t.Errorf("candidate path %q is not absolute", c.Path)
		}
		if c.ModTime.IsZero() {
			t.Errorf("candidate %s has zero mod time", c.Identifier)
		}
	}
}

func TestScanFirstPathWins(t *testing.T) {
	t.Parallel()

	builtin := t.TempDir()
	user := t.TempDir()
	builtinPath := writeFile(t, builtin, "plug_echo.wasm")
	writeFile(t, user, "plug_echo.wasm")
	writeFile(t, user, "plug_extra.wasm")

	got := NewScanner(builtin, user).Scan()

	if len(got) != 2 {
		t.Fatalf("Scan found %d candidates, want 2", len(got))
	}
	if got[0].Identifier != "echo" || got[0].Path != builtinPath {
		t.Errorf("echo resolved to %s, want the earlier search path %s", got[0].Path, builtinPath)
	}
	if got[1].Identifier != "extra" {
		t.Errorf("second candidate = %s, want extra", got[1].Identifier)
	}
}

func TestScanUnreadablePathIsNotFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "plug_echo.wasm")

	got := NewScanner(filepath.Join(dir, "does-not-exist"), dir).Scan()

	if len(got) != 1 || got[0].Identifier != "echo" {
		t.Fatalf("Scan = %+v, want the one candidate from the readable path", got)
	}
}
