package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ParamKind enumerates the three value kinds a default parameter can carry.
// The translator's encoding rule (flag / omitted / key-value pair) is a total
// function over this variant.
type ParamKind int

const (
	// ParamNull is an explicit null in the configuration document.
	ParamNull ParamKind = iota
	ParamString
	ParamBool
)

// ParamValue is a tagged union of string, bool and null.
type ParamValue struct {
	Kind ParamKind
	Str  string
	Bool bool
}

func StringValue(s string) ParamValue {
	return ParamValue{Kind: ParamString, Str: s}
}

func BoolValue(b bool) ParamValue {
	return ParamValue{Kind: ParamBool, Bool: b}
}

func NullValue() ParamValue {
	return ParamValue{Kind: ParamNull}
}

func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	default:
		return fmt.Errorf("default parameter must be string, bool or null, got %T", raw)
	}
	return nil
}

func (v ParamValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ParamString:
		return json.Marshal(v.Str)
	case ParamBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

// DefaultParams is the defaultParameters object with its declared key order
// preserved. encoding/json maps are unordered, the candidate-key ordering of
// the argument vector depends on document order, so decoding walks the token
// stream instead.
type DefaultParams struct {
	keys   []string
	values map[string]ParamValue
}

// Set appends key with value v, overwriting the value but keeping the
// original position when key is already present.
func (p *DefaultParams) Set(key string, v ParamValue) {
	if p.values == nil {
		p.values = make(map[string]ParamValue)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Get returns the value for key and whether it is present.
func (p DefaultParams) Get(key string) (ParamValue, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p DefaultParams) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the parameter names in document order.
func (p DefaultParams) Keys() []string {
	return slices.Clone(p.keys)
}

func (p DefaultParams) Len() int {
	return len(p.keys)
}

func (p *DefaultParams) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = DefaultParams{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("defaultParameters must be an object, got %v", tok)
	}

	*p = DefaultParams{values: make(map[string]ParamValue)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("defaultParameters key is not a string: %v", tok)
		}
		var v ParamValue
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("defaultParameters.%s: %w", key, err)
		}
		p.Set(key, v)
	}
	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (p DefaultParams) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
