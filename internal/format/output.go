// Package format writes machine-readable command output for scripting.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// Write writes v in the requested format.
//
// Supported formats:
// - json (one document)
// - jsonl (one line per element; v must be a slice)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "jsonl":
		return WriteJSONL(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output. Strict means no trailing prose: a
// command either prints its human rendering or a single parseable document,
// never both.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// WriteJSONL writes one JSON document per line, one per slice element, for
// piping into line-oriented tools. Non-slice values degrade to a single line.
func WriteJSONL(w io.Writer, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return WriteJSON(w, v, false)
	}
	enc := json.NewEncoder(w)
	for i := 0; i < rv.Len(); i++ {
		if err := enc.Encode(rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}
