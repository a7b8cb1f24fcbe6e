// Package enginetest builds and launches a stand-in ELK server for tests.
//
// The stand-in speaks the same line protocol as "elk-server --stdio" and
// computes a simple layered layout, so packages above the engine can be
// tested without a Java runtime. ELK_MOCK_MODE selects failure modes; see
// testdata/mock-elk/main.go.
package enginetest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/matzehuels/elkbridge/pkg/engine"
)

var (
	buildOnce  sync.Once
	binaryPath string
	errBuild   error
)

func build() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		errBuild = fmt.Errorf("locate enginetest sources")
		return
	}
	src := filepath.Join(filepath.Dir(file), "testdata", "mock-elk")

	dir, err := os.MkdirTemp("", "mock-elk-*")
	if err != nil {
		errBuild = err
		return
	}
	binaryPath = filepath.Join(dir, "mock-elk")
	if runtime.GOOS == "windows" {
		binaryPath += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, "./main.go")
	cmd.Dir = src
	if out, err := cmd.CombinedOutput(); err != nil {
		errBuild = fmt.Errorf("build mock: %w: %s", err, out)
	}
}

// Binary returns the path of the compiled stand-in, building it on first
// use. The binary lives in a temporary directory shared by the test run.
func Binary(t testing.TB) string {
	t.Helper()
	buildOnce.Do(build)
	if errBuild != nil {
		t.Fatalf("mock engine build failed: %v", errBuild)
	}
	return binaryPath
}

// Resolver returns a resolver for the stand-in running in the given mode.
// An empty mode selects normal behavior.
func Resolver(t testing.TB, mode string) engine.Resolver {
	t.Helper()
	return engine.StaticResolver(Executable(t, mode))
}

// Executable describes the stand-in running in mode. For "crash-once" a
// fresh state file is allocated so each test sees exactly one crash.
func Executable(t testing.TB, mode string) engine.Executable {
	t.Helper()
	exe := engine.Executable{Path: Binary(t)}
	if mode != "" {
		exe.Env = append(exe.Env, "ELK_MOCK_MODE="+mode)
	}
	if mode == "crash-once" {
		exe.Env = append(exe.Env, "ELK_MOCK_STATE="+filepath.Join(t.TempDir(), "state"))
	}
	return exe
}
