package logger

import "testing"

func TestSetLevelAcceptsKnownLevels(t *testing.T) {
	defer func() { _ = SetLevel("INFO") }()

	for _, level := range []string{"trace", "DEBUG", "Info", "warn", "ERROR"} {
		if err := SetLevel(level); err != nil {
			t.Errorf("SetLevel(%q) = %v, want nil", level, err)
		}
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Error("SetLevel(\"verbose\") = nil, want an error")
	}
}

func TestLoggingBelowCurrentLevelDoesNotPanic(t *testing.T) {
	defer func() { _ = SetLevel("INFO") }()
	_ = SetLevel("ERROR")
	Trace("this should be suppressed: %d", 1)
	Debug("this should be suppressed: %d", 2)
	Info("this should be suppressed: %d", 3)
}
