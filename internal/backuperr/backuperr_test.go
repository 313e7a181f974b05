package backuperr

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"io", IO("read", "/x", os.ErrPermission), "io"},
		{"codec", Codec("apply", "/x.diff", ErrWrongBase), "codec"},
		{"tool", &ExternalToolError{Tool: "hpatchz", ExitCode: 2}, "tool"},
		{"missing base", &MissingBaseError{GuessedName: "a.base"}, "missing-base"},
		{"invalid name", &InvalidNameError{Path: ""}, "invalid-name"},
		{"wrapped codec", fmt.Errorf("step 2: %w", Codec("apply", "", ErrCorruptDelta)), "codec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %q, expected %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessagesAreDistinct(t *testing.T) {
	ioMsg := IO("write", "/backup/a.diff", errors.New("no space left on device")).Error()
	codecMsg := Codec("apply", "/backup/a.diff", ErrWrongBase).Error()
	missingMsg := (&MissingBaseError{GuessedName: "a.txt.base"}).Error()

	if !strings.HasPrefix(ioMsg, "disk error") {
		t.Errorf("io message = %q", ioMsg)
	}
	if !strings.Contains(codecMsg, "different base") {
		t.Errorf("codec message = %q", codecMsg)
	}
	if !strings.Contains(missingMsg, "a.txt.base") {
		t.Errorf("missing base message = %q", missingMsg)
	}
}

func TestUnwrap(t *testing.T) {
	err := IO("stat", "/x", os.ErrNotExist)
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("IOError should unwrap to the underlying error")
	}
	err = Codec("apply", "/x", ErrWrongBase)
	if !errors.Is(err, ErrWrongBase) {
		t.Error("CodecError should unwrap to ErrWrongBase")
	}
}

func TestExternalToolErrorMessage(t *testing.T) {
	err := &ExternalToolError{Tool: "hdiffz", ExitCode: 1, Stderr: "  bad args\n"}
	if got := err.Error(); got != "hdiffz exited with status 1: bad args" {
		t.Errorf("Error() = %q", got)
	}
	err = &ExternalToolError{Tool: "hdiffz", ExitCode: 3}
	if got := err.Error(); got != "hdiffz exited with status 3" {
		t.Errorf("Error() = %q", got)
	}
}
