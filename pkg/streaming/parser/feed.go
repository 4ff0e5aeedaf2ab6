package parser

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// ByteSource is the raw record stream a Feed decodes, independent of the
// decode Func itself -- a message-bus consumer in production, a line
// reader or an in-memory slice for tests and the streamplan demo.
type ByteSource interface {
	Next(ctx context.Context) ([]byte, bool, error)
}

// Feed adapts a ByteSource plus a decode Func into an operator.RawFeed
// (pkg/streaming/operator), batching up to batchSize decoded records per
// StreamChunk. Every row is tagged Insert: a source only ever emits
// insert-only chunks.
type Feed struct {
	src       ByteSource
	decode    Func
	schema    row.Schema
	batchSize int
}

func NewFeed(src ByteSource, decode Func, schema row.Schema, batchSize int) *Feed {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Feed{src: src, decode: decode, schema: schema, batchSize: batchSize}
}

func (f *Feed) Next(ctx context.Context) (chunk.StreamChunk, bool, error) {
	cols := make([][]row.Datum, len(f.schema.Fields))
	n := 0
	for n < f.batchSize {
		raw, ok, err := f.src.Next(ctx)
		if err != nil {
			return chunk.StreamChunk{}, false, err
		}
		if !ok {
			break
		}
		r, err := f.decode(raw, f.schema)
		if err != nil {
			return chunk.StreamChunk{}, false, err
		}
		for i, d := range r {
			cols[i] = append(cols[i], d)
		}
		n++
	}
	if n == 0 {
		return chunk.StreamChunk{}, false, nil
	}
	ops := make([]chunk.Op, n)
	for i := range ops {
		ops[i] = chunk.Insert
	}
	sc, err := chunk.New(ops, f.schema, cols, nil)
	return sc, true, err
}

// ChanSource is a ByteSource backed by a Go channel, for driving a Feed
// with a fixed script of records.
type ChanSource struct {
	C chan []byte
}

func NewChanSource(capacity int) *ChanSource {
	return &ChanSource{C: make(chan []byte, capacity)}
}

func (s *ChanSource) Next(ctx context.Context) ([]byte, bool, error) {
	select {
	case b, ok := <-s.C:
		return b, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
		return nil, false, nil
	}
}

// FileLineSource reads newline-delimited records from a file, one record
// per line, for cmd/streamworker's demo source. Exhausting the file
// yields (nil, false, nil) forever rather than an error, matching a
// source's expected behavior of an idle upstream between records.
type FileLineSource struct {
	r    *bufio.Reader
	done bool
}

func OpenFileLineSource(path string) (*FileLineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileLineSource{r: bufio.NewReader(f)}, nil
}

func (s *FileLineSource) Next(ctx context.Context) ([]byte, bool, error) {
	if s.done {
		return nil, false, nil
	}
	line, err := s.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			s.done = true
			if len(line) == 0 {
				return nil, false, nil
			}
			return line, true, nil
		}
		return nil, false, err
	}
	return line, true, nil
}
