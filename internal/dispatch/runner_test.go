package dispatch_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/microwrap/microwrap/internal/dispatch"
	"github.com/stretchr/testify/require"
)

func shPath(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return sh
}

func TestRun(t *testing.T) {
	t.Parallel()
	sh := shPath(t)

	t.Run("success captures stdout", func(t *testing.T) {
		t.Parallel()
		res := dispatch.Run(context.Background(), dispatch.Command{
			Path: sh,
			Args: []string{"-c", "printf 'hello\\n'"},
		})
		require.NoError(t, res.SpawnErr)
		require.Zero(t, res.ExitCode)
		require.Equal(t, "hello\n", string(res.Stdout))
		require.Empty(t, res.Stderr)
		require.NotZero(t, res.Started)
		require.False(t, res.Stopped.Before(res.Started))
	})

	t.Run("non-zero exit captures both streams", func(t *testing.T) {
		t.Parallel()
		res := dispatch.Run(context.Background(), dispatch.Command{
			Path: sh,
			Args: []string{"-c", "printf 'partial\\n'; printf 'err\\n' 1>&2; exit 2"},
		})
		require.NoError(t, res.SpawnErr)
		require.Equal(t, 2, res.ExitCode)
		require.Equal(t, "partial\n", string(res.Stdout))
		require.Equal(t, "err\n", string(res.Stderr))
	})

	t.Run("spawn failure is not an exit code", func(t *testing.T) {
		t.Parallel()
		res := dispatch.Run(context.Background(), dispatch.Command{
			Path: "/does/not/exist",
		})
		require.Error(t, res.SpawnErr)
		require.Empty(t, res.Stdout)
		require.Empty(t, res.Stderr)
	})

	t.Run("timeout kills a hung child", func(t *testing.T) {
		t.Parallel()
		res := dispatch.Run(context.Background(), dispatch.Command{
			Path:    sh,
			Args:    []string{"-c", "sleep 60"},
			Timeout: 100 * time.Millisecond,
		})
		require.NoError(t, res.SpawnErr)
		require.NotZero(t, res.ExitCode)
		require.Less(t, res.Stopped.Sub(res.Started), 10*time.Second)
	})

	t.Run("argument vector reaches the child", func(t *testing.T) {
		t.Parallel()
		echo, err := exec.LookPath("echo")
		if err != nil {
			t.Skipf("skipped, binary echo not available: %v", err)
		}
		res := dispatch.Run(context.Background(), dispatch.Command{
			Path: echo,
			Args: []string{"--greeting", "bye", "--loud"},
		})
		require.NoError(t, res.SpawnErr)
		require.Zero(t, res.ExitCode)
		require.Equal(t, "--greeting bye --loud\n", string(res.Stdout))
	})
}
