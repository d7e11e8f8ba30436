package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/shaderabi"
)

const decls = `
[[struct]]
name = "Params"
  [[struct.field]]
  name = "scale"
  type = "float"
  [[struct.field]]
  name = "mask"
  type = "uint"
  bits = 4

[[buffer]]
name = "params"
struct = "Params"
  [buffer.values]
  scale = 2.0
  mask = 9
`

func writeDecls(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decls.toml")
	if err := os.WriteFile(path, []byte(decls), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLayoutTable(t *testing.T) {
	d, err := shaderabi.Load(writeDecls(t))
	if err != nil {
		t.Fatal(err)
	}
	layouts, err := shaderabi.Plan(d)
	if err != nil {
		t.Fatal(err)
	}
	data := layoutTable(d.Module, layouts[0])
	if len(data) != 3 {
		t.Fatalf("got %d rows, want header and two fields: %v", len(data), data)
	}
	if got := data[1]; got[0] != "scale" || got[2] != "0" || got[4] != "c0.x" {
		t.Errorf("scale row = %v", got)
	}
	if got := data[2]; got[4] != "c0.y" || got[5] != "mask:4@0" {
		t.Errorf("bit-field row = %v", got)
	}
}

func TestHLSLCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "params.hlsl")
	cmd := rootCmd()
	cmd.SetArgs([]string{"hlsl", "--shader-model", "6.0", "-o", out, writeDecls(t)})
	defer func() { output = "" }()
	if err := cmd.Execute(); err != nil {
		t.Fatalf("hlsl failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cbuffer params") {
		t.Errorf("output has no cbuffer:\n%s", data)
	}
}

func TestHLSLCommand_BadShaderModel(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"hlsl", "--shader-model", "4.0", writeDecls(t)})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for shader model 4.0")
	}
}

func TestCallIndexes(t *testing.T) {
	d, err := shaderabi.Load(writeDecls(t))
	if err != nil {
		t.Fatal(err)
	}
	if got, err := callIndexes(d, -1); err != nil || len(got) != 0 {
		t.Errorf("callIndexes(-1) = %v, %v", got, err)
	}
	if _, err := callIndexes(d, 0); err == nil {
		t.Error("expected an error for a missing call site")
	}
}
