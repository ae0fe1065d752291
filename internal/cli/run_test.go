package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/store"
)

// runtimePost is a response or error report received by fakeRuntime.
type runtimePost struct {
	path      string
	errorType string
	body      []byte
}

// fakeRuntime serves a single invocation, then blocks every later poll
// until the client gives up.
type fakeRuntime struct {
	payload []byte

	mu     sync.Mutex
	served bool
	posts  chan runtimePost
}

func newFakeRuntime(t *testing.T, payload []byte) (*fakeRuntime, *httptest.Server) {
	t.Helper()
	f := &fakeRuntime{payload: payload, posts: make(chan runtimePost, 4)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRuntime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/2018-06-01/runtime/invocation/next":
		f.mu.Lock()
		first := !f.served
		f.served = true
		f.mu.Unlock()

		if !first {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Lambda-Runtime-Aws-Request-Id", "req-1")
		w.Header().Set("Lambda-Runtime-Deadline-Ms", "4102444800000")
		_, _ = w.Write(f.payload)

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/2018-06-01/runtime/invocation/req-1/"):
		body, _ := io.ReadAll(r.Body)
		f.posts <- runtimePost{
			path:      r.URL.Path,
			errorType: r.Header.Get("Lambda-Runtime-Function-Error-Type"),
			body:      body,
		}
		w.WriteHeader(http.StatusAccepted)

	default:
		http.NotFound(w, r)
	}
}

// runUntilPost runs the run command until the runtime receives one
// report, then stops it.
func runUntilPost(t *testing.T, f *fakeRuntime, opts *RunOptions) runtimePost {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRunCommand(opts.RootOptions)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runLambda(opts, cmd)
	}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	done := make(chan error, 1)
	go func() {
		done <- cmd.ExecuteContext(ctx)
	}()

	var post runtimePost
	select {
	case post = <-f.posts:
	case err := <-done:
		t.Fatalf("run exited before reporting: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for invocation report")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	return post
}

func TestRunAppliesInvocationToReplica(t *testing.T) {
	f, srv := newFakeRuntime(t, marshalEvent(t, sampleEvent()))
	dbPath := filepath.Join(t.TempDir(), "replica.db")

	opts := &RunOptions{
		RootOptions: &RootOptions{
			Format: "text",
			Getenv: env(map[string]string{
				"AWS_LAMBDA_RUNTIME_API": srv.Listener.Addr().String(),
				"CDCSYNC_REPLICA":        dbPath,
			}),
		},
		IDGenerator: pipeline.NewFixedGenerator("batch-1"),
	}

	post := runUntilPost(t, f, opts)
	assert.Equal(t, "/2018-06-01/runtime/invocation/req-1/response", post.path)
	assert.Equal(t, "SUCCESS", string(post.body))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	obj, err := st.Get(context.Background(), "a|1")
	require.NoError(t, err)
	assert.Equal(t, "batch-1", obj.BatchID)

	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunWithoutDownstreamFailsInvocation(t *testing.T) {
	f, srv := newFakeRuntime(t, marshalEvent(t, sampleEvent()))

	opts := &RunOptions{
		RootOptions: &RootOptions{
			Format: "text",
			Getenv: env(map[string]string{
				"AWS_LAMBDA_RUNTIME_API": srv.Listener.Addr().String(),
			}),
		},
	}

	post := runUntilPost(t, f, opts)
	assert.Equal(t, "/2018-06-01/runtime/invocation/req-1/error", post.path)
	assert.Equal(t, "MISSING_CONFIG", post.errorType)

	var payload struct {
		ErrorMessage string `json:"errorMessage"`
		ErrorType    string `json:"errorType"`
	}
	require.NoError(t, json.Unmarshal(post.body, &payload))
	assert.Equal(t, "MISSING_CONFIG", payload.ErrorType)
	assert.Contains(t, payload.ErrorMessage, "no downstream configured")
}

func TestRunRejectsMalformedPayload(t *testing.T) {
	f, srv := newFakeRuntime(t, []byte("{not json"))

	opts := &RunOptions{
		RootOptions: &RootOptions{
			Format: "text",
			Getenv: env(map[string]string{
				"AWS_LAMBDA_RUNTIME_API": srv.Listener.Addr().String(),
				"CDCSYNC_REPLICA":        filepath.Join(t.TempDir(), "replica.db"),
			}),
		},
	}

	post := runUntilPost(t, f, opts)
	assert.Equal(t, "/2018-06-01/runtime/invocation/req-1/error", post.path)
}

func TestRunRequiresRuntimeAPI(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text", Getenv: env(nil)})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "AWS_LAMBDA_RUNTIME_API is not set")
}

func TestRunInvalidTelemetryMode(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{
		Format: "text",
		Getenv: env(map[string]string{"AWS_LAMBDA_RUNTIME_API": "127.0.0.1:9"}),
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--telemetry", "jaeger"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to set up telemetry")
}
