// Package snapshot_test provides golden snapshot tests for buffer layouts
// and the HLSL backend.
//
// For each declaration file in testdata/in/, the test plans every cbuffer,
// dumps the descriptor tree and writes the HLSL declarations, comparing both
// to golden files stored in testdata/golden/{layout,hlsl}/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/shaderabi"
	"github.com/gogpu/shaderabi/config"
	"github.com/gogpu/shaderabi/hlsl"
	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// TestSnapshots loads all declaration files and compares their layouts and
// HLSL output with golden files.
func TestSnapshots(t *testing.T) {
	inputs := loadInputs(t, "testdata/in")
	if len(inputs) == 0 {
		t.Fatal("no inputs found in testdata/in/")
	}

	for _, name := range inputs {
		t.Run(name, func(t *testing.T) {
			decls, err := shaderabi.Load(filepath.Join("testdata", "in", name+".toml"))
			if err != nil {
				t.Fatalf("[%s] load failed: %v", name, err)
			}
			layouts, err := shaderabi.Plan(decls)
			if err != nil {
				t.Fatalf("[%s] plan failed: %v", name, err)
			}

			t.Run("layout", func(t *testing.T) {
				compareGolden(t, filepath.Join("testdata", "golden", "layout", name+".txt"), dumpLayouts(decls, layouts))
			})

			t.Run("hlsl", func(t *testing.T) {
				code, _, err := shaderabi.HLSL(decls, layouts, hlsl.DefaultOptions())
				if err != nil {
					t.Fatalf("[%s] HLSL failed: %v", name, err)
				}
				compareGolden(t, filepath.Join("testdata", "golden", "hlsl", name+".hlsl"), code)
			})
		})
	}
}

// loadInputs returns the base names of all .toml files in dir, sorted.
func loadInputs(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read input directory %q: %v", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Layout Dump
// ---------------------------------------------------------------------------

// dumpLayouts prints every descriptor of every buffer, one per line,
// indented by nesting depth.
func dumpLayouts(decls *config.Declarations, layouts []*layout.BufferLayout) string {
	var sb strings.Builder
	for _, bl := range layouts {
		fmt.Fprintf(&sb, "cbuffer %s size=%d registers=%d\n", bl.Name, bl.Size, bl.Registers())
		bl.Root.Walk(func(depth int, d *layout.Descriptor) {
			if depth == 0 {
				return
			}
			name := d.Name
			if name == "" {
				name = "[element]"
			}
			sb.WriteString(strings.Repeat("  ", depth-1))
			fmt.Fprintf(&sb, "%s %s offset=%d size=%d", name, ir.Format(decls.Module, d.Type), d.Offset, d.Size)
			if d.Stride != 0 {
				fmt.Fprintf(&sb, " stride=%d", d.Stride)
			}
			for _, bf := range d.BitFields {
				fmt.Fprintf(&sb, " %s:%d@%d", bf.Name, bf.BitWidth, bf.BitOffset)
			}
			if d.Conflict {
				sb.WriteString(" conflict")
			}
			sb.WriteByte('\n')
		})
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output with the golden file at path. With
// UPDATE_GOLDEN set it rewrites the golden file instead.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil {
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, actual)
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if diff := cmp.Diff(strings.Split(expectedStr, "\n"), strings.Split(actualStr, "\n")); diff != "" {
		t.Errorf("output differs from golden %s (-want +got):\n%s", path, diff)
	}
}
