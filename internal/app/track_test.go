package app

import (
	"strings"
	"testing"
)

func TestTrackCommandFlags(t *testing.T) {
	flags := []string{"daemon", "daemon-child", "pid-file", "log-file", "stop", "feed"}
	for _, name := range flags {
		if trackCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestTrackCommandDaemonChildHidden(t *testing.T) {
	flag := trackCmd.Flags().Lookup("daemon-child")
	if flag == nil {
		t.Fatal("expected --daemon-child flag to be registered")
	}
	if !flag.Hidden {
		t.Error("expected --daemon-child flag to be hidden")
	}
}

func TestTrackCommandHelp(t *testing.T) {
	if trackCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if !strings.Contains(trackCmd.Example, "track --daemon") {
		t.Error("expected Example to show daemon mode")
	}
	if !strings.Contains(trackCmd.Example, "track --stop") {
		t.Error("expected Example to show stop mode")
	}
}
