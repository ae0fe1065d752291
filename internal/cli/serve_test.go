package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHandlesRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", Getenv: env(nil)},
		Listener:    ln,
	}
	cmd := NewServeCommand(opts.RootOptions)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(opts, cmd)
	}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- cmd.ExecuteContext(ctx)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/v1/reconcile", "application/json", bytes.NewReader(marshalEvent(t, sampleEvent())))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reconciled struct {
		Operations []map[string]any `json:"operations"`
		Stats      map[string]int   `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &reconciled))
	require.Len(t, reconciled.Operations, 1)
	assert.Equal(t, "addObject", reconciled.Operations[0]["action"])
	assert.Equal(t, 1, reconciled.Stats["rejected"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServeInvalidTelemetryMode(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text", Getenv: env(nil)})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--telemetry", "jaeger"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeBadConfig(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text", ConfigPath: "missing.yaml", Getenv: env(nil)})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load configuration")
}
