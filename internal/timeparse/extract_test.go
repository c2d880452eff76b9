package timeparse

import (
	"reflect"
	"strings"
	"testing"
)

func displays(text string) []string {
	var out []string
	for _, c := range ExtractAll(text) {
		out = append(out, c.Display)
	}
	return out
}

func TestISOWithZonePassthrough(t *testing.T) {
	got := displays("Trading starts 2025-10-08 06:29 UTC+8 sharp")
	if len(got) == 0 {
		t.Fatal("no candidates")
	}
	if !strings.Contains(got[0], "UTC+8") {
		t.Errorf("zone token not preserved: %q", got[0])
	}
	if got[0] != "2025-10-08 06:29 UTC+8" {
		t.Errorf("got %q", got[0])
	}
}

func TestISOWithSeconds(t *testing.T) {
	got := displays("open: 2025/10/08 06:29:01 GMT+3")
	want := []string{"2025-10-08 06:29:01 GMT+3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLabelledFamily(t *testing.T) {
	text := "Listing Time: 2025-10-08 06:00 UTC+8 ... Start trading: ABC/USDT"
	got := displays(text)
	if len(got) == 0 || got[0] != "2025-10-08 06:00 UTC+8" {
		t.Errorf("got %v", got)
	}
}

func TestLabelledLocalizedKeyword(t *testing.T) {
	got := displays("Открытие: 2025-10-03 14:30")
	if len(got) == 0 || got[0] != "2025-10-03 14:30" {
		t.Errorf("got %v", got)
	}
}

func TestTimeFirstNaturalLanguage(t *testing.T) {
	cases := map[string]string{
		"15:00 UTC, 8 October 2025":  "2025-10-08 15:00 UTC",
		"14:30, 8 жовтня 2025":       "2025-10-08 14:30",
		"09:05 GMT, 1 сентября 2025": "2025-09-01 09:05 GMT",
	}
	for text, want := range cases {
		got := displays(text)
		if len(got) == 0 || got[0] != want {
			t.Errorf("%q: got %v, want first %q", text, got, want)
		}
	}
}

func TestDateFirstNaturalLanguage(t *testing.T) {
	got := displays("on 8 October 2025 the pair opens for trading at 15:00 UTC")
	if len(got) == 0 || got[0] != "2025-10-08 15:00 UTC" {
		t.Errorf("got %v", got)
	}
}

func TestDateFirstGapIsCapped(t *testing.T) {
	filler := strings.Repeat("x ", 100)
	got := displays("8 October 2025 " + filler + " 15:00 UTC")
	for _, d := range got {
		if strings.HasPrefix(d, "2025-10-08") {
			t.Errorf("date-first matched across oversized gap: %v", got)
		}
	}
}

func TestZoneLabelledShortForm(t *testing.T) {
	got := displays("deposits open now, trading at 14:00 KST today")
	if len(got) != 1 || got[0] != "14:00 KST" {
		t.Errorf("got %v", got)
	}
}

func TestCityFormKeptVerbatim(t *testing.T) {
	got := displays("starts 14:00 (as seen in Kyiv)")
	if len(got) != 1 || got[0] != "14:00 (as seen in Kyiv)" {
		t.Errorf("got %v", got)
	}
}

func TestInvalidTimesRejected(t *testing.T) {
	texts := []string{
		"2025-10-08 25:61 UTC",
		"Start: 2025-10-08 24:00",
		"25:61 UTC, 8 October 2025",
		"8 October 2025 at 23:75 UTC",
		"99:99 KST",
	}
	for _, text := range texts {
		for _, d := range displays(text) {
			if strings.Contains(d, "25:61") || strings.Contains(d, "24:00") ||
				strings.Contains(d, "23:75") || strings.Contains(d, "99:99") {
				t.Errorf("%q: invalid time accepted: %q", text, d)
			}
		}
	}
}

func TestUnknownMonthRejected(t *testing.T) {
	if got := displays("15:00 UTC, 8 Brumaire 2025"); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestDeterministicOrderAndDedup(t *testing.T) {
	text := "Listing Time: 2025-10-08 06:00 UTC+8. " +
		"Trading opens 2025-10-08 06:00 UTC+8, also at 14:00 KST. " +
		"Go-Live: 2025-10-09 07:00 UTC"
	first := displays(text)
	for i := 0; i < 10; i++ {
		if got := displays(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
	seen := map[string]int{}
	for _, d := range first {
		seen[d]++
	}
	for d, n := range seen {
		if n > 1 {
			t.Errorf("duplicate candidate %q appears %d times", d, n)
		}
	}
	// ISO family output precedes the short-form output.
	if len(first) < 3 || first[0] != "2025-10-08 06:00 UTC+8" {
		t.Errorf("unexpected order: %v", first)
	}
}

func TestISOInstantCarriesFixedOffset(t *testing.T) {
	cands := ExtractAll("2025-10-08 06:00 UTC+8")
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	if cands[0].Instant.IsZero() {
		t.Fatal("expected parsed instant")
	}
	_, offset := cands[0].Instant.Zone()
	if offset != 8*3600 {
		t.Errorf("got offset %d, want +8h", offset)
	}
}

func TestExtractSymbols(t *testing.T) {
	text := "New listings: ABCUSDT and XYZ/USDT perpetual, plus DEF_USDT-M. ABCUSDT again."
	got := ExtractSymbols(text)
	want := []string{"ABC", "DEF", "XYZ"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
