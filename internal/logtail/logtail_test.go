package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		level   string
		message string
		fields  []Field
		time    time.Time
	}{
		{
			name:    "logfmt with fields",
			input:   `time=2026-03-01T10:00:00Z level=info msg="page committed" endpoint=/platforms page=1`,
			level:   "info",
			message: "page committed",
			fields:  []Field{{Key: "endpoint", Value: "/platforms"}, {Key: "page", Value: "1"}},
			time:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "uppercase level",
			input:   `level=WARN msg=slow`,
			level:   "warn",
			message: "slow",
		},
		{
			name:    "plain text",
			input:   `"unterminated`,
			message: `"unterminated`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got.Level != tt.level || got.Message != tt.message {
				t.Fatalf("Parse() = level %q msg %q, want %q %q", got.Level, got.Message, tt.level, tt.message)
			}
			if len(tt.fields) > 0 && !reflect.DeepEqual(got.Fields, tt.fields) {
				t.Fatalf("Parse() fields = %v, want %v", got.Fields, tt.fields)
			}
			if !got.Time.Equal(tt.time) {
				t.Fatalf("Parse() time = %v, want %v", got.Time, tt.time)
			}
			if got.Raw != tt.input {
				t.Fatalf("Parse() raw = %q", got.Raw)
			}
		})
	}
}

func TestTail_Filters(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ludex.log")
	lines := strings.Join([]string{
		`level=debug msg="request" endpoint=/platforms`,
		`level=info msg="page committed" endpoint=/releases`,
		``,
		`level=error msg="page load failed" endpoint=/releases err="boom"`,
	}, "\n")
	if err := os.WriteFile(logPath, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	all, err := Tail(logPath, 0, Filter{})
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Tail() returned %d entries, want 3", len(all))
	}

	got, err := Tail(logPath, 0, Filter{MinLevel: "info", Contains: "RELEASES"})
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tail() returned %d entries, want 2", len(got))
	}
	if got[1].Get("err") != "boom" {
		t.Fatalf("err field = %q, want boom", got[1].Get("err"))
	}
}
