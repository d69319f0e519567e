package support

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestInputError(t *testing.T) {
	plain := &InputError{Reason: "empty mesh"}
	if got := plain.Error(); got != "input mesh: empty mesh" {
		t.Errorf("Error = %q", got)
	}

	wrapped := &InputError{Reason: "unreadable file", Err: io.ErrUnexpectedEOF}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("wrapped cause should be reachable through errors.Is")
	}
	if !strings.Contains(wrapped.Error(), "unexpected EOF") {
		t.Errorf("Error = %q, want the cause included", wrapped.Error())
	}
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Param: "overhang-angle", Reason: "95.00 outside (0, 90)"}
	want := "configuration: overhang-angle: 95.00 outside (0, 90)"
	if err.Error() != want {
		t.Errorf("Error = %q, want %q", err.Error(), want)
	}
}

func TestWarningString(t *testing.T) {
	w := Warning{RegionID: 3, Stage: "synthesis", Message: "region skipped"}
	if got := w.String(); got != "synthesis: region 3: region skipped" {
		t.Errorf("String = %q", got)
	}
}
