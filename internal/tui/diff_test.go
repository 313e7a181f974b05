package tui

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{
			name:     "empty content",
			content:  "",
			expected: false,
		},
		{
			name:     "plain text",
			content:  "Hello, world!\nThis is a test file.\n",
			expected: false,
		},
		{
			name:     "text with unicode",
			content:  "Hello 世界! Émojis: 🎉",
			expected: false,
		},
		{
			name:     "binary with null bytes",
			content:  "some\x00binary\x00content",
			expected: true,
		},
		{
			name:     "invalid UTF-8",
			content:  string([]byte{0xff, 0xfe, 0x00, 0x01}),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsBinaryContent(tt.content)
			if result != tt.expected {
				t.Errorf("IsBinaryContent() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestComputeFileDiff(t *testing.T) {
	tests := []struct {
		name         string
		content1     string
		content2     string
		expectedLen  int
		checkAdded   int
		checkDeleted int
	}{
		{
			name:         "added lines",
			content1:     "line1",
			content2:     "line1\nline2",
			expectedLen:  2,
			checkAdded:   1,
			checkDeleted: 0,
		},
		{
			name:         "deleted lines",
			content1:     "line1\nline2\n",
			content2:     "line1\n",
			expectedLen:  2,
			checkAdded:   0,
			checkDeleted: 1,
		},
		{
			name:         "changed middle line",
			content1:     "a\nb\nc\n",
			content2:     "a\nB\nc\n",
			expectedLen:  4,
			checkAdded:   1,
			checkDeleted: 1,
		},
		{
			name:         "empty to content",
			content1:     "",
			content2:     "new content",
			expectedLen:  1,
			checkAdded:   1,
			checkDeleted: 0,
		},
		{
			name:         "content to empty",
			content1:     "old content\nmore\n",
			content2:     "",
			expectedLen:  2,
			checkAdded:   0,
			checkDeleted: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeFileDiff("left", "right", []byte(tt.content1), []byte(tt.content2))

			if result.Identical || result.IsBinary {
				t.Fatalf("Identical = %v, IsBinary = %v", result.Identical, result.IsBinary)
			}
			if len(result.Lines) != tt.expectedLen {
				t.Errorf("len(Lines) = %d, expected %d", len(result.Lines), tt.expectedLen)
			}
			if result.Added != tt.checkAdded {
				t.Errorf("Added = %d, expected %d", result.Added, tt.checkAdded)
			}
			if result.Deleted != tt.checkDeleted {
				t.Errorf("Deleted = %d, expected %d", result.Deleted, tt.checkDeleted)
			}
		})
	}
}

func TestComputeFileDiffIdentical(t *testing.T) {
	result := ComputeFileDiff("a", "b", []byte("same\n"), []byte("same\n"))
	if !result.Identical {
		t.Error("expected Identical")
	}
	if len(result.Lines) != 0 {
		t.Errorf("len(Lines) = %d, expected 0", len(result.Lines))
	}
}

func TestComputeFileDiffBinary(t *testing.T) {
	result := ComputeFileDiff("a", "b", []byte("PK\x03\x04\x00\x00"), []byte("PK\x03\x04\x00\x01"))
	if !result.IsBinary {
		t.Error("expected IsBinary")
	}
	if result.Identical {
		t.Error("binary contents differ, expected Identical = false")
	}
	if len(result.Lines) != 0 {
		t.Errorf("len(Lines) = %d, expected 0", len(result.Lines))
	}
}

func TestConvertToLineDiffNumbering(t *testing.T) {
	diffs := []diffmatchpatch.Diff{
		{Type: diffmatchpatch.DiffEqual, Text: "keep\n"},
		{Type: diffmatchpatch.DiffDelete, Text: "old1\nold2\n"},
		{Type: diffmatchpatch.DiffInsert, Text: "new\n"},
		{Type: diffmatchpatch.DiffEqual, Text: "tail\n"},
	}

	want := []DiffLine{
		{LineNum1: 1, LineNum2: 1, Type: ' ', Content: "keep"},
		{LineNum1: 2, Type: '-', Content: "old1"},
		{LineNum1: 3, Type: '-', Content: "old2"},
		{LineNum2: 2, Type: '+', Content: "new"},
		{LineNum1: 4, LineNum2: 3, Type: ' ', Content: "tail"},
	}

	got := convertToLineDiff(diffs)
	if len(got) != len(want) {
		t.Fatalf("len = %d, expected %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, expected %+v", i, got[i], want[i])
		}
	}
}
