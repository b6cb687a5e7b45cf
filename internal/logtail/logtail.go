package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Field is one key=value pair of a log entry beyond time, level and msg.
type Field struct {
	Key   string
	Value string
}

// Entry is a parsed logfmt line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  []Field
	Raw     string
}

// Get returns the value of key among the extra fields.
func (e Entry) Get(key string) string {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Parse decodes a logfmt line. Lines that are not logfmt come back with only
// Message and Raw set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	dec := logfmt.NewDecoder(strings.NewReader(line))
	if !dec.ScanRecord() {
		entry.Message = line
		return entry
	}
	for dec.ScanKeyval() {
		key, value := string(dec.Key()), string(dec.Value())
		switch key {
		case "time", "ts":
			if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
				entry.Time = t
				continue
			}
			entry.Fields = append(entry.Fields, Field{Key: key, Value: value})
		case "level", "lvl":
			entry.Level = strings.ToLower(value)
		case "msg", "message":
			entry.Message = value
		default:
			entry.Fields = append(entry.Fields, Field{Key: key, Value: value})
		}
	}
	if dec.Err() != nil || (entry.Level == "" && entry.Message == "") {
		return Entry{Raw: line, Message: line}
	}
	return entry
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3, "fatal": 4}

// Filter selects entries for display.
type Filter struct {
	// MinLevel drops entries below this level. Empty keeps everything.
	MinLevel string
	// Contains keeps entries whose raw line contains this text, ignoring case.
	Contains string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		got, known := levelRank[e.Level]
		if ok && known && got < want {
			return false
		}
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(e.Raw), strings.ToLower(f.Contains)) {
		return false
	}
	return true
}

// Tail reads the last maxLines of path and returns the parsed entries that
// pass filter, oldest first.
func Tail(path string, maxLines int, filter Filter) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if filter.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
