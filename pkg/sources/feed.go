package sources

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Ramsey-B/camellia/pkg/models"
)

// Item is one entry read from a feed. Record is nil when the entry could not be decoded and Err
// says why; Envelope is kept when the entry at least parsed as one.
type Item struct {
	Ref      string
	Envelope *Envelope
	Record   Record
	Err      error
}

// Outcome is the terminal state of a feed item after a run decided it.
type Outcome struct {
	Item       Item
	Status     models.StagedStatus
	BusinessID string
	Detail     string
}

// Feed yields records in a stable order. Next returns an empty slice once the feed is drained.
type Feed interface {
	Next(ctx context.Context, max int) ([]Item, error)
	// Ack records outcomes inside the chunk's transaction. Only live runs ack.
	Ack(ctx context.Context, outcomes []Outcome) error
}

// Committer is implemented by feeds whose acknowledgement must wait for the chunk commit.
type Committer interface {
	Committed(ctx context.Context, outcomes []Outcome) error
}

const maxLineBytes = 4 << 20

// FileFeed reads newline-delimited JSON envelopes, one record per line.
type FileFeed struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

func NewFileFeed(r io.Reader) *FileFeed {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	feed := &FileFeed{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		feed.closer = c
	}
	return feed
}

// OpenFileFeed opens an NDJSON dump. "-" reads standard input.
func OpenFileFeed(path string) (*FileFeed, error) {
	if path == "-" {
		return NewFileFeed(io.NopCloser(os.Stdin)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileFeed(f), nil
}

func (f *FileFeed) Next(ctx context.Context, max int) ([]Item, error) {
	var items []Item
	for len(items) < max {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if !f.scanner.Scan() {
			return items, f.scanner.Err()
		}
		f.line++

		line := strings.TrimSpace(f.scanner.Text())
		if line == "" {
			continue
		}

		item := Item{Ref: strconv.Itoa(f.line)}
		item.Record, item.Envelope, item.Err = Decode([]byte(line))
		items = append(items, item)
	}
	return items, nil
}

// Ack is a no-op: a dump has nothing to mark.
func (f *FileFeed) Ack(context.Context, []Outcome) error {
	return nil
}

func (f *FileFeed) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// SliceFeed serves records held in memory.
type SliceFeed struct {
	records []Record
	pos     int
	Acked   []Outcome
}

func NewSliceFeed(records ...Record) *SliceFeed {
	return &SliceFeed{records: records}
}

func (f *SliceFeed) Next(_ context.Context, max int) ([]Item, error) {
	var items []Item
	for f.pos < len(f.records) && len(items) < max {
		items = append(items, Item{Ref: strconv.Itoa(f.pos), Record: f.records[f.pos]})
		f.pos++
	}
	return items, nil
}

func (f *SliceFeed) Ack(_ context.Context, outcomes []Outcome) error {
	f.Acked = append(f.Acked, outcomes...)
	return nil
}
