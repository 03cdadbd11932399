//go:build unix

package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/engine"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/profile"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/runner"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

func shellLanguages(marker string) []profile.LanguageSpec {
	return []profile.LanguageSpec{
		{
			ID:         "sh",
			SourceFile: "main.sh",
			RunCmdTpl:  "/bin/sh {src}",
			VersionCmd: `/bin/sh -c 'echo sh-1.0; echo extra'`,
		},
		{
			ID:             "shc",
			SourceFile:     "main.sh",
			BinaryFile:     "main.bin",
			CompileEnabled: true,
			CompileCmdTpl:  `/bin/sh -c 'grep -q COMPILE_ERROR "$0" && { echo "syntax error" >&2; exit 1; }; cp "$0" "$1"' {src} {bin}`,
			RunCmdTpl:      `/bin/sh -c 'touch "$MARKER"; exec /bin/sh "$0"' {bin}`,
			VersionCmd:     "/definitely/missing --version",
			Env:            []string{"MARKER=" + marker},
		},
	}
}

func newTestService(t *testing.T, root string, marker string) *Service {
	t.Helper()
	svc, err := NewService(Config{
		WorkRoot:   root,
		RunTimeout: 2 * time.Second,
		Languages:  shellLanguages(marker),
	}, runner.NewRunner(engine.NewEngine(engine.Config{})))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace leaked: %d entries left in %s", len(entries), dir)
	}
}

func TestExecuteInterpreted(t *testing.T) {
	root := t.TempDir()
	svc := newTestService(t, root, filepath.Join(t.TempDir(), "marker"))

	res, err := svc.Execute(context.Background(), ExecuteRequest{Language: "sh", Code: "read a b\necho $((a+b))\n", Stdin: "2 3\n"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "5" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if !res.Compiled() {
		t.Fatalf("unexpected compile error")
	}
	assertEmptyDir(t, root)
}

func TestExecuteCompiled(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(t.TempDir(), "marker")
	svc := newTestService(t, root, marker)

	res, err := svc.Execute(context.Background(), ExecuteRequest{Language: "shc", Code: "cat\n", Stdin: "hi"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Stdout != "hi" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("run step did not execute: %v", err)
	}
	assertEmptyDir(t, root)
}

func TestExecuteCompileFailureSkipsRun(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(t.TempDir(), "marker")
	svc := newTestService(t, root, marker)

	res, err := svc.Execute(context.Background(), ExecuteRequest{Language: "shc", Code: "COMPILE_ERROR\n", Stdin: "hi"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Stdout != "" {
		t.Fatalf("stdout = %q, want empty", res.Stdout)
	}
	if res.CompileError == nil || !strings.Contains(*res.CompileError, "syntax error") {
		t.Fatalf("compile error = %v", res.CompileError)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("run step executed after compile failure")
	}
	assertEmptyDir(t, root)
}

func TestExecuteTimeoutCleansUp(t *testing.T) {
	root := t.TempDir()
	svc, err := NewService(Config{
		WorkRoot:   root,
		RunTimeout: 200 * time.Millisecond,
		Languages:  shellLanguages(filepath.Join(t.TempDir(), "marker")),
	}, runner.NewRunner(engine.NewEngine(engine.Config{})))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Execute(context.Background(), ExecuteRequest{Language: "sh", Code: "sleep 5\n"})
	if !appErr.Is(err, appErr.ExecutionTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	assertEmptyDir(t, root)
}

func TestExecuteUnsupportedLanguageTouchesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never-created")
	svc := newTestService(t, root, "")

	_, err := svc.Execute(context.Background(), ExecuteRequest{Language: "cobol", Code: "x"})
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
	if err.Error() != "Unsupported language: cobol" {
		t.Fatalf("message = %q", err.Error())
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Fatalf("work root was created")
	}
}

func TestDetectVersions(t *testing.T) {
	svc := newTestService(t, t.TempDir(), "")
	versions := svc.DetectVersions(context.Background())

	if v := versions["sh"]; v == nil || *v != "sh-1.0" {
		t.Fatalf("sh version = %v", v)
	}
	if v, ok := versions["shc"]; !ok || v != nil {
		t.Fatalf("missing toolchain should map to nil, got %v %v", v, ok)
	}
}

func TestNewServiceValidatesLanguages(t *testing.T) {
	r := runner.NewRunner(engine.NewEngine(engine.Config{}))
	_, err := NewService(Config{Languages: []profile.LanguageSpec{{ID: "x", SourceFile: "x", RunCmdTpl: "x", CompileEnabled: true}}}, r)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	svc, err := NewService(Config{}, r)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if got := strings.Join(svc.Languages(), ","); got != "cpp,java,python" {
		t.Fatalf("languages = %s", got)
	}
}
