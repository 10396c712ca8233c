package connector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// ─────────────────────────────────────────────────────────────
// In-package stream tests: the early-cancellation contract is about
// bytes pulled from the underlying reader, so these run against the
// producer/consumer pair directly with a counting source.
// ─────────────────────────────────────────────────────────────

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func bigCSV(rows int) string {
	var b strings.Builder
	b.WriteString("id,payload\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%06d,xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx\n", i)
	}
	return b.String()
}

func TestReadDelimited_LimitStopsConsumingBytes(t *testing.T) {
	data := bigCSV(5000) // ~200KB
	cr := &countingReader{r: strings.NewReader(data)}

	rows, err := readDelimited(context.Background(), cr, 0, nil, 3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	total := int64(len(data))
	read := cr.n.Load()
	if read >= total {
		t.Fatalf("limit-bounded read consumed the whole source: %d of %d bytes", read, total)
	}
	// The csv reader buffers in chunks, so allow a few chunks of
	// overshoot, but nowhere near the full file.
	if read > total/4 {
		t.Errorf("read %d of %d bytes, expected an early stop", read, total)
	}
}

func TestReadDelimited_ErrorDeliveredExactlyOnce(t *testing.T) {
	// Row 3 is ragged; rows 4+ would also fail if the producer kept
	// going, but only the first failure may surface.
	data := "a,b\n1,2\n3\n4\n5,6\n"
	rowCh, errCh := streamRows(context.Background(), strings.NewReader(data), 0)

	var rows int
	for range rowCh {
		rows++
	}
	if rows != 1 {
		t.Errorf("expected 1 good row before the failure, got %d", rows)
	}

	err, ok := <-errCh
	if !ok || err == nil {
		t.Fatal("expected one error from the stream")
	}
	if _, again := <-errCh; again {
		t.Error("error channel delivered a second event")
	}
}

func TestReadDelimited_ErrorAfterLimitIsIgnored(t *testing.T) {
	// The limit is satisfied before the ragged row; the read must
	// succeed even though the remainder of the file is malformed.
	data := "a,b\n1,2\n3,4\n5\n"
	rows, err := readDelimited(context.Background(), strings.NewReader(data), 0, nil, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

func TestStreamRows_CancelStopsSilently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rowCh, errCh := streamRows(ctx, strings.NewReader(bigCSV(1000)), 0)

	if _, ok := <-rowCh; !ok {
		t.Fatal("expected at least one row before cancel")
	}
	cancel()

	// Producer must wind down and close both channels without firing
	// a late error event.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-rowCh:
			if !ok {
				if err, open := <-errCh; open && err != nil {
					t.Errorf("cancellation produced a spurious error: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("producer did not stop after cancellation")
		}
	}
}

func TestMatchesFilter(t *testing.T) {
	row := map[string]any{"city": "NY", "age": "30"}

	if !matchesFilter(row, nil) {
		t.Error("nil filter must match")
	}
	if !matchesFilter(row, map[string]any{"city": "NY"}) {
		t.Error("equal value must match")
	}
	if matchesFilter(row, map[string]any{"city": "LA"}) {
		t.Error("different value must not match")
	}
	if !matchesFilter(row, map[string]any{"age": float64(30)}) {
		t.Error("numeric filter must match its string form")
	}
	if matchesFilter(row, map[string]any{"city": "NY", "age": "31"}) {
		t.Error("one failing entry must reject the row")
	}
}
