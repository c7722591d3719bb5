package assets

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFuturesCodesOrderAndLetters(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	codes := FuturesCodes(now)

	wantLen := len(winLetters) + 2*len(monthlyLetters)
	if len(codes) != wantLen {
		t.Fatalf("got %d codes, want %d", len(codes), wantLen)
	}

	if codes[0] != "wing25" {
		t.Fatalf("first code = %q, want %q", codes[0], "wing25")
	}
	if codes[len(winLetters)] != "wdof25" {
		t.Fatalf("first wdo code = %q, want %q", codes[len(winLetters)], "wdof25")
	}
	if codes[len(winLetters)+len(monthlyLetters)] != "bitf25" {
		t.Fatalf("first bit code = %q, want %q", codes[len(winLetters)+len(monthlyLetters)], "bitf25")
	}
	if last := codes[len(codes)-1]; last != "bitz25" {
		t.Fatalf("last code = %q, want %q", last, "bitz25")
	}
}

func TestExtractNamesSkipsShortLinesAndDedups(t *testing.T) {
	// columns 12..24 (0-indexed) hold the asset code.
	short := "tooshort"
	long1 := strings.Repeat("0", 12) + "PETR4       " + "tail"
	long2 := strings.Repeat("0", 12) + "PETR4       " + "other-tail"
	long3 := strings.Repeat("1", 12) + "VALE3       " + "x"

	input := strings.Join([]string{short, long1, long2, long3}, "\n")

	names, err := ExtractNames(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ExtractNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}
	if _, ok := names["PETR4"]; !ok {
		t.Fatalf("expected PETR4 in %v", names)
	}
	if _, ok := names["VALE3"]; !ok {
		t.Fatalf("expected VALE3 in %v", names)
	}
}

func TestSaveAndReadNamesRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assets.txt")

	in := map[string]struct{}{"PETR4": {}, "VALE3": {}, "ABEV3": {}}
	if err := SaveNames(in, path); err != nil {
		t.Fatalf("SaveNames: %v", err)
	}

	got, err := ReadNames(path)
	if err != nil {
		t.Fatalf("ReadNames: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d names, want %d", len(got), len(in))
	}
	for _, name := range got {
		if _, ok := in[name]; !ok {
			t.Fatalf("unexpected name %q", name)
		}
	}
}
