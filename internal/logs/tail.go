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

const maxLineBytes = 1024 * 1024

// TailOptions selects lines from a log file.
type TailOptions struct {
	// Limit is the number of trailing lines to return; zero returns none and
	// only reports the end offset.
	Limit int
	// Match keeps only lines containing this substring, typically a run id.
	Match string
}

// TailResult carries matched lines and the offset to continue from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns the last Limit matching lines of path. A missing file yields
// an empty result.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return TailResult{}, err
	}
	defer file.Close()

	var ring []string
	next := 0
	if opts.Limit > 0 {
		ring = make([]string, 0, opts.Limit)
	}
	offset, err := scanLines(file, func(line string) {
		if opts.Limit <= 0 || !matches(line, opts.Match) {
			return
		}
		if len(ring) < opts.Limit {
			ring = append(ring, line)
			return
		}
		ring[next] = line
		next = (next + 1) % opts.Limit
	})
	if err != nil {
		return TailResult{}, err
	}

	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[next:]...)
	lines = append(lines, ring[:next]...)
	return TailResult{Lines: lines, Offset: offset}, nil
}

// ReadFrom returns matching lines appended after offset. A file that shrank
// below offset was rotated or truncated and is read from the start.
func ReadFrom(path string, offset int64, match string) (TailResult, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return TailResult{Offset: 0}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	read, err := scanLines(file, func(line string) {
		if matches(line, match) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	return TailResult{Lines: lines, Offset: offset + read}, nil
}

// Follow polls path every interval starting at offset and hands each batch
// of new matching lines to emit. It returns when ctx ends.
func Follow(ctx context.Context, path string, offset int64, match string, interval time.Duration, emit func([]string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		res, err := ReadFrom(path, offset, match)
		if err != nil {
			return err
		}
		offset = res.Offset
		if len(res.Lines) > 0 {
			emit(res.Lines)
		}
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

// scanLines feeds complete lines to fn and returns the bytes consumed. A
// trailing line without a newline is still being written and is left for
// the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}

func matches(line, match string) bool {
	return match == "" || strings.Contains(line, match)
}
