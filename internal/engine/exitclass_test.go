package engine

import "testing"

func TestClassify_CleanExit(t *testing.T) {
	if got := classify(0, false, nil, 5000); got != ExitClean {
		t.Errorf("classify() = %v, want clean", got)
	}
}

func TestClassify_Signaled(t *testing.T) {
	if got := classify(0, true, nil, 5000); got != ExitSignal {
		t.Errorf("classify() = %v, want signal", got)
	}
}

func TestClassify_EarlyVsLateCrash(t *testing.T) {
	if got := classify(1, false, nil, 500); got != ExitCrashEarly {
		t.Errorf("classify(early) = %v, want crash_early", got)
	}
	if got := classify(1, false, nil, 5000); got != ExitCrashLate {
		t.Errorf("classify(late) = %v, want crash_late", got)
	}
}

func TestClassify_DriverRejectedChannelFromStderr(t *testing.T) {
	tail := []string{"wlan0: interface state ENABLED->DISABLED", "Invalid channel"}
	if got := classify(1, false, tail, 5000); got != ExitDriverRejectedChannel {
		t.Errorf("classify() = %v, want driver_rejected_channel", got)
	}
}

func TestClassify_MissingBinaryFromStderr(t *testing.T) {
	tail := []string{"/bin/sh: hostapd: command not found"}
	if got := classify(127, false, tail, 100); got != ExitMissingBinary {
		t.Errorf("classify() = %v, want missing_binary", got)
	}
}
