package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ConfigErrDetail is one humanized CUE validation failure. The raw CUE
// messages talk about unification and incomplete values, which is noise for
// an operator fixing a JSON file.
type ConfigErrDetail struct {
	Path    string // e.g. defaultParameters.verbose
	Code    string // missing_required | unknown_field | type_mismatch | conflict | validation_error
	Message string
	Line    int
	Column  int
}

func (d ConfigErrDetail) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s", d.Path, d.Message)
	}
	return fmt.Sprintf("%s (line %d, column %d): %s", d.Path, d.Line, d.Column, d.Message)
}

func (d ConfigErrDetail) Attr(name string) slog.Attr {
	return slog.Attr{
		Key: name,
		Value: slog.GroupValue(
			slog.String("code", d.Code),
			slog.String("path", d.Path),
			slog.String("message", d.Message),
			slog.Int("line", d.Line),
			slog.Int("column", d.Column),
		),
	}
}

var (
	reIncomplete = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict   = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`)
	reMismatch   = regexp.MustCompile(`(?i)expected .* got .*|mismatched types`)
)

// ConfigErrDetails explodes a CUE validation error into one detail per
// distinct failure, deduplicated by document position.
func ConfigErrDetails(err error) []ConfigErrDetail {
	if err == nil {
		return nil
	}

	type pos struct{ line, column int }
	seen := make(map[pos]struct{})

	var out []ConfigErrDetail
	for _, e := range cueerrors.Errors(err) {
		raw, _ := e.Msg()
		path := normalizePath(e.Path())
		code, msg := classify(raw, path)

		var p pos
		for _, r := range cueerrors.Positions(e) {
			if r.Filename() == "" {
				continue
			}
			p = pos{line: r.Line(), column: r.Column()}
			break
		}
		if _, ok := seen[p]; ok && p != (pos{}) {
			continue
		}
		seen[p] = struct{}{}

		out = append(out, ConfigErrDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Line:    p.line,
			Column:  p.column,
		})
	}
	return out
}

func classify(raw, path string) (code, msg string) {
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field", fmt.Sprintf("field %s is not allowed", last(path))
	case reIncomplete.MatchString(raw):
		return "missing_required", fmt.Sprintf("field %s is required", last(path))
	case reConflict.MatchString(raw):
		return "conflict", fmt.Sprintf("conflicting values for %s", last(path))
	case reMismatch.MatchString(raw):
		return "type_mismatch", fmt.Sprintf("field %s has wrong type or value", last(path))
	default:
		return "validation_error", raw
	}
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// strip the leading #Config definition
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func last(p string) string {
	if p == "" {
		return p
	}
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}
