//go:build !windows

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/elkbridge/internal/config"
	"github.com/matzehuels/elkbridge/pkg/engine/enginetest"
)

func mockCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(&bytes.Buffer{}, LogInfo)
	cfg := config.Default()
	cfg.Engine.Script = enginetest.Binary(t)
	cfg.Distribution.CacheDir = t.TempDir()
	c.cfg = cfg
	return c
}

const twoNodes = `{"id":"root","children":[{"id":"n1","width":30,"height":30},{"id":"n2","width":30,"height":30}],"edges":[{"id":"e1","sources":["n1"],"targets":["n2"]}]}`

func TestRunStdio(t *testing.T) {
	c := mockCLI(t)
	in := strings.NewReader(twoNodes + "\n\n" + `{"id":"root","children":[{"id":"x"}]}` + "\n" + twoNodes + "\n")
	var out, errOut bytes.Buffer

	if err := c.runStdio(context.Background(), in, &out, &errOut); err != nil {
		t.Fatalf("runStdio() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d response lines, want 2:\n%s", len(lines), out.String())
	}
	for _, line := range lines {
		var resp map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("response is not JSON: %q", line)
		}
		for _, id := range []string{"root", "n1", "n2", "e1"} {
			if _, ok := resp[id]; !ok {
				t.Errorf("response missing %q: %s", id, line)
			}
		}
	}
	if !strings.HasPrefix(errOut.String(), "Error: ") {
		t.Errorf("layout failure should be reported on stderr, got %q", errOut.String())
	}
}

func TestRunStdioCancel(t *testing.T) {
	c := mockCLI(t)
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- c.runStdio(ctx, pr, &bytes.Buffer{}, &bytes.Buffer{}) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runStdio() after cancel = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runStdio did not return after cancellation")
	}
}

func TestDoctorScriptMode(t *testing.T) {
	c := mockCLI(t)
	cmd := c.doctorCommand()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Errorf("doctor with a valid script: %v", err)
	}

	c.cfg.Engine.Script = c.cfg.Distribution.CacheDir + "/missing-elk-server"
	cmd = c.doctorCommand()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("doctor should fail when the script does not exist")
	}
}
