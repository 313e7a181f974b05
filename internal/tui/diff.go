package tui

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine represents a single line in the diff output
type DiffLine struct {
	LineNum1 int    // Line number in the left file (0 if added)
	LineNum2 int    // Line number in the right file (0 if deleted)
	Type     rune   // '+' added, '-' deleted, ' ' unchanged
	Content  string // Line content
}

// FileDiffResult contains the line-by-line diff of two files
type FileDiffResult struct {
	Left      string
	Right     string
	Lines     []DiffLine
	Added     int
	Deleted   int
	Identical bool
	IsBinary  bool
	Error     string
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	// Check first 8000 bytes for null bytes or invalid UTF-8
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	sample := content[:checkLen]

	if strings.Contains(sample, "\x00") {
		return true
	}

	return !utf8.ValidString(sample)
}

// ComputeFileDiff computes the line-by-line diff between the left and
// right contents. Binary contents are only compared for equality.
func ComputeFileDiff(left, right string, content1, content2 []byte) *FileDiffResult {
	result := &FileDiffResult{
		Left:      left,
		Right:     right,
		Identical: bytes.Equal(content1, content2),
	}

	text1, text2 := string(content1), string(content2)
	if IsBinaryContent(text1) || IsBinaryContent(text2) {
		result.IsBinary = true
		return result
	}
	if result.Identical {
		return result
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(terminate(text1), terminate(text2))
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	result.Lines = convertToLineDiff(diffs)
	for _, line := range result.Lines {
		switch line.Type {
		case '+':
			result.Added++
		case '-':
			result.Deleted++
		}
	}
	return result
}

// convertToLineDiff numbers the lines of a line-mode diff
func convertToLineDiff(diffs []diffmatchpatch.Diff) []DiffLine {
	var lines []DiffLine
	n1, n2 := 0, 0

	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				lines = append(lines, DiffLine{LineNum1: n1, LineNum2: n2, Type: ' ', Content: text})
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, DiffLine{LineNum1: n1, Type: '-', Content: text})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, DiffLine{LineNum2: n2, Type: '+', Content: text})
			}
		}
	}

	return lines
}

// terminate ends non-empty text with a newline so the last line compares
// equal whether or not the file had one.
func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\n")
	}
	return lines
}
