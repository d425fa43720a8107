// Package document produces effective documents: a complete default value
// with a possibly partial remote JSON document merged over it.
//
// Merge policy is a uniform deep merge. Objects are merged field by field at
// every nesting level; arrays and scalars present in the remote document
// replace the default; a null leaves the default in place; a remote scalar
// where the default holds an object is ignored for that field.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonmerge "github.com/apapsch/go-jsonmerge/v2"
)

// Merge returns defaults with remote merged over it. Conflicts are
// returned alongside a usable value and are safe to log and ignore.
func Merge[T any](defaults T, remote []byte) (T, []error, error) {
	base, err := json.Marshal(defaults)
	if err != nil {
		return defaults, nil, fmt.Errorf("encode defaults: %w", err)
	}
	return mergeInto(defaults, base, remote)
}

// Apply merges a partial update over current.
func Apply[T any](current T, patch map[string]any) (T, []error, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return current, nil, fmt.Errorf("encode current: %w", err)
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return current, nil, fmt.Errorf("encode patch: %w", err)
	}
	return mergeInto(current, base, raw)
}

// mergeInto decodes the merged JSON over a copy of fallback so that
// fields the merge left null keep their fallback value.
func mergeInto[T any](fallback T, base, patch []byte) (T, []error, error) {
	merger := jsonmerge.Merger{CopyNonexistent: true}
	merged, err := merger.MergeBytes(base, patch)
	if err != nil {
		return fallback, nil, fmt.Errorf("merge: %w", err)
	}
	out := Clone(fallback)
	if err := json.Unmarshal(merged, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fallback, merger.Errors, fmt.Errorf("field %q: %w", typeErr.Field, err)
		}
		return fallback, merger.Errors, fmt.Errorf("decode merged: %w", err)
	}
	return out, merger.Errors, nil
}

// Clone deep-copies v through its JSON form.
func Clone[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
