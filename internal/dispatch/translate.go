package dispatch

import (
	"github.com/microwrap/microwrap/internal/model"
)

// Param is one query-string parameter occurrence in request order.
// HasValue distinguishes a bare flag (?loud) from an explicit empty value
// (?loud=): the former becomes a --loud token, the latter suppresses the
// parameter entirely.
type Param struct {
	Key      string
	Value    string
	HasValue bool
}

// Translate builds the argument vector for one request. It is pure and has
// no failure modes, unknown or malformed input is dropped rather than
// rejected.
//
// Candidate keys are the configured defaults in their declared order
// followed by novel query keys in order of first appearance. Keys outside
// allowed never contribute. A query occurrence overrides the default of the
// same name, and a key repeated in the query resolves to its last
// occurrence.
func Translate(incoming []Param, allowed []string, defaults model.DefaultParams) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		allowedSet[key] = struct{}{}
	}

	// last occurrence wins, order of first appearance kept for novel keys
	override := make(map[string]Param, len(incoming))
	var novel []string
	for _, p := range incoming {
		if _, seen := override[p.Key]; !seen && !defaults.Has(p.Key) {
			novel = append(novel, p.Key)
		}
		override[p.Key] = p
	}

	argv := []string{}
	encode := func(key string) {
		if _, ok := allowedSet[key]; !ok {
			return
		}
		if p, ok := override[key]; ok {
			switch {
			case !p.HasValue:
				argv = append(argv, "--"+key)
			case p.Value == "":
				// suppressed
			default:
				argv = append(argv, "--"+key, p.Value)
			}
			return
		}
		v, ok := defaults.Get(key)
		if !ok {
			return
		}
		switch v.Kind {
		case model.ParamBool:
			if v.Bool {
				argv = append(argv, "--"+key)
			}
		case model.ParamString:
			if v.Str != "" {
				argv = append(argv, "--"+key, v.Str)
			}
		case model.ParamNull:
			// suppressed
		}
	}

	for _, key := range defaults.Keys() {
		encode(key)
	}
	for _, key := range novel {
		encode(key)
	}
	return argv
}
