package cmd

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "stride" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "stride")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"serve", "start", "resume", "status", "go-back", "monitor"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestStartFlags(t *testing.T) {
	if startCmd.Flags().Lookup("skill") == nil {
		t.Error("start should have a --skill flag")
	}
	if startCmd.Flags().Lookup("prompt") == nil {
		t.Error("start should have a --prompt flag")
	}
}
