// Package dispatch turns one parsed HTTP request into one invocation of the
// wrapped executable: it translates query parameters into an argument
// vector, admits the invocation under the configured concurrency bound,
// runs the child process and maps its outcome to an HTTP status and body.
package dispatch
