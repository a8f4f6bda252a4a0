package applog

import "testing"

func TestSetLevelCaseInsensitive(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })

	// Config files carry lowercase level names.
	SetLevel("debug")
	if !enabled(LevelDebug) {
		t.Fatal("lowercase debug must enable debug output")
	}

	SetLevel("error")
	if enabled(LevelWarn) {
		t.Fatal("lowercase error must suppress warn output")
	}
	if !enabled(LevelError) {
		t.Fatal("error level must stay enabled")
	}
}

func TestRankUnknownDefaultsToInfo(t *testing.T) {
	if rank("nonsense") != rank(LevelInfo) {
		t.Fatal("unknown level must rank as info")
	}
}
