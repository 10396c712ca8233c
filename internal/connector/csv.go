package connector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"datagate/internal/source"
)

// ── Delimited-file connector ────────────────────────────────
// Streams a CSV file row by row over a producer/consumer channel pair.
// The consumer applies the filter and limit, and cancels the producer
// once the limit is satisfied: the producer checks the context before
// every read, so a bounded read on an arbitrarily large file stops
// pulling bytes as soon as enough rows are kept.

// csvChanBuffer is small on purpose: a large buffer would let the
// producer run far past the point the limit needs.
const csvChanBuffer = 1

// ReadCSV streams the descriptor's file and returns the kept rows.
// filter keeps a row only when every entry matches; limit > 0 stops
// the stream after that many kept rows. Cells stay strings.
func ReadCSV(ctx context.Context, d source.Descriptor, filter map[string]any, limit int) ([]map[string]any, error) {
	f, err := os.Open(d.Path())
	if err != nil {
		return nil, wrap("read csv", fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	var delim rune
	if s, ok := d.Config["delimiter"].(string); ok && s != "" {
		delim = rune(s[0])
	}

	rows, err := readDelimited(ctx, f, delim, filter, limit)
	if err != nil {
		return nil, wrap("read csv", err)
	}
	return rows, nil
}

// readDelimited runs the producer/consumer pair over an already-open
// reader. Split out from ReadCSV so the early-cancellation contract is
// testable against a byte-counting source.
func readDelimited(ctx context.Context, r io.Reader, delim rune, filter map[string]any, limit int) ([]map[string]any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := streamRows(ctx, r, delim)

	rows := []map[string]any{}
	for row := range rowCh {
		if !matchesFilter(row, filter) {
			continue
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			cancel()
			// Drain until the producer notices the cancellation and
			// closes the channel; it reads no further input past this
			// point, and an error it may have buffered no longer
			// concerns a satisfied read.
			for range rowCh {
			}
			return rows, nil
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// streamRows is the producer: it reads one CSV record at a time and
// sends header-keyed rows until EOF, error, or cancellation. The error
// channel is buffered size 1 and receives at most one failure; a
// cancelled producer exits silently rather than firing a late event.
func streamRows(ctx context.Context, r io.Reader, delim rune) (<-chan map[string]any, <-chan error) {
	out := make(chan map[string]any, csvChanBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delim != 0 {
			reader.Comma = delim
		}
		reader.LazyQuotes = true
		reader.TrimLeadingSpace = true

		headers, err := reader.Read()
		if err == io.EOF {
			errCh <- errors.New("empty csv file")
			return
		}
		if err != nil {
			errCh <- fmt.Errorf("parse csv: %w", err)
			return
		}

		for {
			if ctx.Err() != nil {
				return
			}
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("parse csv: %w", err)
				return
			}

			row := make(map[string]any, len(headers))
			for j, h := range headers {
				if j < len(rec) {
					row[h] = rec[j]
				}
			}
			select {
			case out <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

// matchesFilter keeps a row only when every filter entry equals the
// row's cell for that column, AND across all entries. Cells are CSV
// strings, so filter values compare by their string form.
func matchesFilter(row map[string]any, filter map[string]any) bool {
	for col, want := range filter {
		got, ok := row[col]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
