package protolink

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	info := GetVersion()

	if info.Version != Version {
		t.Errorf("Version = %s, want %s", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, runtime.Version())
	}

	s := info.String()
	if !strings.Contains(s, Version) || !strings.Contains(s, runtime.Version()) {
		t.Errorf("String() = %q, missing version fields", s)
	}
}
