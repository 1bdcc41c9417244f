package dispatch_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/microwrap/microwrap/internal/dispatch"
	"github.com/stretchr/testify/require"
)

func TestMapResult(t *testing.T) {
	t.Parallel()

	t.Run("exit zero answers 200 with stdout", func(t *testing.T) {
		t.Parallel()
		resp := dispatch.MapResult(dispatch.Result{
			ExitCode: 0,
			Stdout:   []byte("hello\n"),
			Stderr:   []byte("ignored\n"),
		})
		require.Equal(t, http.StatusOK, resp.Status)
		require.Equal(t, "hello\n", string(resp.Body))
	})

	t.Run("non-zero exit answers 500 with stdout then stderr", func(t *testing.T) {
		t.Parallel()
		resp := dispatch.MapResult(dispatch.Result{
			ExitCode: 2,
			Stdout:   []byte("partial\n"),
			Stderr:   []byte("err\n"),
		})
		require.Equal(t, http.StatusInternalServerError, resp.Status)
		require.Equal(t, "partial\nerr\n", string(resp.Body))
	})

	t.Run("no separator is inserted between the streams", func(t *testing.T) {
		t.Parallel()
		resp := dispatch.MapResult(dispatch.Result{
			ExitCode: 1,
			Stdout:   []byte("a"),
			Stderr:   []byte("b"),
		})
		require.Equal(t, "ab", string(resp.Body))
	})

	t.Run("spawn failure answers 500 with a diagnostic", func(t *testing.T) {
		t.Parallel()
		resp := dispatch.MapResult(dispatch.Result{
			Path:     "/opt/tool",
			SpawnErr: errors.New("permission denied"),
		})
		require.Equal(t, http.StatusInternalServerError, resp.Status)
		require.Contains(t, string(resp.Body), "/opt/tool")
		require.Contains(t, string(resp.Body), "permission denied")
	})
}
