package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = fmt.Sprintf(format, v...) })

	Logf("hello %d", 1)
	if got != "hello 1" {
		t.Errorf("Logf wrote %q, want %q", got, "hello 1")
	}

	Attemptf("abc", "state=%s", "idle")
	if got != "[attempt abc] state=idle" {
		t.Errorf("Attemptf wrote %q", got)
	}

	SetLogger(nil)
	got = ""
	Logf("muted")
	if got != "" {
		t.Errorf("nil logger should mute output, got %q", got)
	}
}
