package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1 << 20

// Query selects lines from a log file.
type Query struct {
	// Lines keeps only the last N matching lines; zero or less keeps all.
	Lines int
	// Contains drops lines that do not include the substring.
	Contains string
}

func (q Query) match(line string) bool {
	return q.Contains == "" || strings.Contains(line, q.Contains)
}

// Last returns the matching lines at the end of path and the offset just past
// them. A missing file yields no lines and offset zero.
func Last(path string, q Query) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []string
	next := 0
	keep := func(line string) {
		if q.Lines <= 0 {
			ring = append(ring, line)
			return
		}
		if len(ring) < q.Lines {
			ring = append(ring, line)
			return
		}
		ring[next] = line
		next = (next + 1) % q.Lines
	}

	offset, err := scan(file, func(line string) {
		if q.match(line) {
			keep(line)
		}
	})
	if err != nil {
		return nil, 0, err
	}

	if next == 0 {
		return ring, offset, nil
	}
	ordered := make([]string, 0, len(ring))
	ordered = append(ordered, ring[next:]...)
	ordered = append(ordered, ring[:next]...)
	return ordered, offset, nil
}

// Follow emits matching lines appended to path after offset, polling every
// poll interval until ctx ends. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, q Query, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, q, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, q Query, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		// Truncated or replaced.
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, func(line string) {
		if q.match(line) {
			emit(line)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan feeds complete lines to fn and returns how many bytes they spanned. A
// trailing partial line is left for the next read.
func scan(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		fn(text)
	}
}
