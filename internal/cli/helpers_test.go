package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/stream"
	"github.com/HENNGE/lambda-container-example/internal/testutil"
)

// env returns a Getenv backed by m, so tests never see the real
// environment.
func env(m map[string]string) func(string) string {
	return func(key string) string {
		return m[key]
	}
}

// sampleEvent has one addition, one no-op churn and one rejected record.
func sampleEvent() stream.Event {
	b := testutil.NewRecordBuilder()
	bad := b.Insert("c", "1", testutil.Image("name", "Carol"))
	bad.EventName = "TRUNCATE"
	return testutil.Event(
		b.Insert("a", "1", testutil.Image("name", "Alice")),
		b.Insert("b", "1", testutil.Image("name", "Bob")),
		b.Remove("b", "1", testutil.Image("name", "Bob")),
		bad,
	)
}

func marshalEvent(t *testing.T, ev stream.Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func writeBatch(t *testing.T, dir string, ev stream.Event) string {
	t.Helper()
	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, marshalEvent(t, ev), 0644))
	return path
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
