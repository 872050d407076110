package logger

import (
	"errors"
	"testing"
)

func TestSanitizer_Sanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "password setting",
			input:    "open archive with password=secret123",
			expected: "open archive with password=***",
		},
		{
			name:     "env style password keeps key",
			input:    "SYMPACK_ARCHIVE_PASSWORD=hunter2 set",
			expected: "SYMPACK_ARCHIVE_PASSWORD=*** set",
		},
		{
			name:     "password flag with space",
			input:    "sympack extract a.zip out --password hunter2",
			expected: "sympack extract a.zip out --password=***",
		},
		{
			name:     "password flag with equals",
			input:    "sympack compress src a.zip --password=hunter2 --level 9",
			expected: "sympack compress src a.zip --password=*** --level 9",
		},
		{
			name:     "short password flag",
			input:    "sympack extract a.zip out -p hunter2",
			expected: "sympack extract a.zip out -p=***",
		},
		{
			name:     "short flag lookalike untouched",
			input:    "entry lib/x-p y.sym",
			expected: "entry lib/x-p y.sym",
		},
		{
			name:     "windows user path",
			input:    "archive at C:\\Users\\john\\Documents\\a.zip",
			expected: "archive at ***:\\Users\\***\\Documents\\a.zip",
		},
		{
			name:     "unix home path",
			input:    "extracting to /home/john/out",
			expected: "extracting to /home/***/out",
		},
		{
			name:     "no sensitive data",
			input:    "added entry main.sym",
			expected: "added entry main.sym",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Sanitize(tt.input)
			if result != tt.expected {
				t.Errorf("Sanitize() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSanitizer_SanitizeArgs(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    []any
		validate func([]any) bool
	}{
		{
			name:  "password key-value",
			input: []any{"zip", "a.zip", "password", "secret123"},
			validate: func(result []any) bool {
				return len(result) == 4 && result[1] == "a.zip" && result[3] == "***"
			},
		},
		{
			name:  "error value under sensitive key",
			input: []any{"secret", errors.New("abc")},
			validate: func(result []any) bool {
				return result[1] == "***"
			},
		},
		{
			name:  "non string value left alone",
			input: []any{"password", 42},
			validate: func(result []any) bool {
				return result[1] == 42
			},
		},
		{
			name:  "no sensitive data",
			input: []any{"entry", "main.sym", "size", 1024},
			validate: func(result []any) bool {
				return len(result) == 4 && result[1] == "main.sym" && result[3] == 1024
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.SanitizeArgs(tt.input)
			if !tt.validate(result) {
				t.Errorf("SanitizeArgs() validation failed for %v", result)
			}
		})
	}
}

func TestSanitizer_SanitizeArgsDoesNotMutateInput(t *testing.T) {
	s := NewSanitizer()
	in := []any{"password", "hunter22"}
	s.SanitizeArgs(in)
	if in[1] != "hunter22" {
		t.Errorf("input mutated: %v", in)
	}
}

func TestSanitizer_AddRule(t *testing.T) {
	s := NewSanitizer()

	if err := s.AddRule(`key=[0-9a-f]{8}`, "key=***"); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	result := s.Sanitize("derived key=deadbeef for entry")
	if result != "derived key=*** for entry" {
		t.Errorf("got %q", result)
	}

	if err := s.AddRule(`(`, "x"); err == nil {
		t.Error("AddRule accepted an invalid pattern")
	}
}

func TestSanitizer_IsSensitiveKey(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"password", true},
		{"archive.password", true},
		{"PASSWORD", true},
		{"secret", true},
		{"encrypted", false},
		{"entry", false},
		{"file", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := isSensitiveKey(tt.input)
			if result != tt.expected {
				t.Errorf("isSensitiveKey(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
