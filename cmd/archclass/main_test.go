package main

import "testing"

func TestSubcommandTreeHasExpectedNames(t *testing.T) {
	want := []string{"build", "score", "explain", "tune", "report"}
	got := map[string]bool{}
	for _, c := range allSubcommands() {
		got[c.Name] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}
