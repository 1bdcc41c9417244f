package dispatch

import "net/http"

// Response is what the HTTP layer writes back to the caller.
type Response struct {
	Status int
	Body   []byte
}

// MapResult converts a process outcome to an HTTP response. Exit 0 answers
// 200 with the captured stdout as the body. Any other exit answers 500 with
// stdout immediately followed by stderr, no separator inserted. Spawn
// failure answers 500 with a diagnostic message instead of captured output.
// No other status codes are produced.
func MapResult(res Result) Response {
	if res.SpawnErr != nil {
		return Response{
			Status: http.StatusInternalServerError,
			Body:   []byte("spawning " + res.Path + ": " + res.SpawnErr.Error() + "\n"),
		}
	}

	if res.ExitCode == 0 {
		return Response{Status: http.StatusOK, Body: res.Stdout}
	}

	body := make([]byte, 0, len(res.Stdout)+len(res.Stderr))
	body = append(body, res.Stdout...)
	body = append(body, res.Stderr...)
	return Response{Status: http.StatusInternalServerError, Body: body}
}
