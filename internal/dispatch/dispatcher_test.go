package dispatch_test

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/microwrap/microwrap/internal/dispatch"
	"github.com/microwrap/microwrap/internal/model"
	"github.com/stretchr/testify/require"
)

// script writes an executable shell script into a test-scoped directory.
func script(t *testing.T, body string) string {
	t.Helper()
	shPath(t) // skip when sh is unavailable
	path := filepath.Join(t.TempDir(), "wrapped.sh")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)
	return path
}

func TestDispatchEndToEnd(t *testing.T) {
	t.Parallel()
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skipf("skipped, binary echo not available: %v", err)
	}

	var dflt model.DefaultParams
	dflt.Set("greeting", model.StringValue("hi"))
	d := dispatch.New(model.Config{
		ExecutablePath:    echo,
		AllowedParameters: []string{"greeting", "loud"},
		DefaultParameters: dflt,
	})

	resp := d.Dispatch(context.Background(), []dispatch.Param{
		{Key: "greeting", Value: "bye", HasValue: true},
		{Key: "loud"},
	})
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "--greeting bye --loud\n", string(resp.Body))
}

// A second back-to-back request must stay queued until the first child
// exits, then run. With a limit of 1 the two sleeps cannot overlap, so the
// total wall time is at least their sum.
func TestDispatchSerializesInvocations(t *testing.T) {
	t.Parallel()
	const naps = 2
	serial := false
	d := dispatch.New(model.Config{
		ExecutablePath: script(t, "sleep 0.3"),
		Concurrent:     &serial,
	})

	started := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < naps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := d.Dispatch(context.Background(), nil)
			require.Equal(t, http.StatusOK, resp.Status)
		}()
	}

	// while the first invocation runs, the second is observably queued
	require.Eventually(t, func() bool {
		return d.Running() == 1 && d.Waiting() == 1
	}, time.Second, time.Millisecond)

	wg.Wait()
	require.GreaterOrEqual(t, time.Since(started), naps*300*time.Millisecond)
	require.Zero(t, d.Running())
	require.Zero(t, d.Waiting())
}

func TestDispatchSpawnFailure(t *testing.T) {
	t.Parallel()
	d := dispatch.New(model.Config{ExecutablePath: "/does/not/exist"})

	resp := d.Dispatch(context.Background(), nil)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Contains(t, string(resp.Body), "/does/not/exist")

	// a spawn failure must not leak its admission slot
	require.Zero(t, d.Running())
	require.Zero(t, d.Waiting())
}
