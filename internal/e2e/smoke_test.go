package e2e

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	var (
		mu      sync.Mutex
		gotAuth string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range []string{`{"text":"Hi "}`, `{"text":"there"}`, "[DONE]"} {
			_, _ = fmt.Fprintf(w, "data: %s\r\n\r\n", frame)
		}
	}))
	t.Cleanup(server.Close)

	_, stderr, err := runShopchat(t, binaryPath, home, "auth", "set", "--token", "tok-123")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runShopchat(t, binaryPath, home, "--no-color", "ask", "--endpoint", server.URL, "Hello")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Hi there")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "shopchat-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/shopchat")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build shopchat binary: %s", string(output))
	return binaryPath
}

func runShopchat(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
