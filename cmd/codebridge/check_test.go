package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strob0t/codebridge/internal/domain/bridge"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRunCheck(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantCode int
		wantOut  string
	}{
		{"clean", "package main\n\nfunc main() {}\n", 0, "no diagnostics"},
		{"warning only", "package main\n\nfunc main() {\n\tx := 1\n}\n", 0, "warning"},
		{"error", "package main\n\nfunc main() {\n\treturn 1\n}\n", 1, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir()) // no codebridge.yaml
			path := writeSource(t, tt.src)

			var out bytes.Buffer
			code, err := runCheck([]string{"-engine", "go", path}, &out)
			if err != nil {
				t.Fatalf("runCheck: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\n%s", code, tt.wantCode, out.String())
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

func TestRunCheckJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeSource(t, "package main\n\nfunc main() {\n\tx := 1\n}\n")

	var out bytes.Buffer
	if _, err := runCheck([]string{"-json", path}, &out); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	var diags []bridge.Diagnostic
	if err := json.Unmarshal(out.Bytes(), &diags); err != nil {
		t.Fatalf("unmarshal %q: %v", out.String(), err)
	}
	if len(diags) != 1 || diags[0].StartLine != 4 || diags[0].Severity != bridge.EditorWarning {
		t.Errorf("diags = %+v", diags)
	}
}

func TestRunCheckUsage(t *testing.T) {
	if code, err := runCheck(nil, &bytes.Buffer{}); err == nil || code != 2 {
		t.Errorf("no file: code=%d err=%v", code, err)
	}
	if code, err := runCheck([]string{"/does/not/exist.go"}, &bytes.Buffer{}); err == nil || code != 2 {
		t.Errorf("missing file: code=%d err=%v", code, err)
	}
}

func TestSeverityLabel(t *testing.T) {
	if got := severityLabel(bridge.EditorWarning, false); got != "warning" {
		t.Errorf("plain = %q", got)
	}
	if got := severityLabel(bridge.EditorError, true); got != "\x1b[31merror\x1b[0m" {
		t.Errorf("colored = %q", got)
	}
}
