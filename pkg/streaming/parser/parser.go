// Package parser treats source decoding as a pure function from bytes to a
// typed Row -- no real Kafka/message-bus client is in scope here. It ships
// one trivial CSV-ish decoder used by cmd/streamworker's demo source and
// by tests.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Func decodes one wire record into a Row typed against schema.
type Func func(b []byte, schema row.Schema) (row.Row, error)

// CSV parses one comma-separated line into a Row, one field per schema
// column. There is no null marker at this layer -- every field must be
// present -- which is enough for the streamworker demo source and for
// tests; it is not meant as a general-purpose CSV decoder.
func CSV(b []byte, schema row.Schema) (row.Row, error) {
	line := strings.TrimRight(string(b), "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) != len(schema.Fields) {
		return nil, fmt.Errorf("parser: csv line has %d fields, schema wants %d", len(fields), len(schema.Fields))
	}
	out := make(row.Row, len(fields))
	for i, f := range fields {
		switch schema.Fields[i].Kind {
		case row.KindInt64:
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parser: column %d: %w", i, err)
			}
			out[i] = row.Int64(v)
		case row.KindBool:
			v, err := strconv.ParseBool(f)
			if err != nil {
				return nil, fmt.Errorf("parser: column %d: %w", i, err)
			}
			out[i] = row.Bool(v)
		case row.KindString:
			out[i] = row.String(f)
		default:
			return nil, fmt.Errorf("parser: csv decoder does not support column kind %s", schema.Fields[i].Kind)
		}
	}
	return out, nil
}
