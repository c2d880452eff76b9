// Package timeparse extracts "trading opens at" time candidates from
// loosely structured announcement prose. A cascade of independent
// pattern families runs over the whole text; every family contributes
// candidates, duplicates collapse by exact display string in
// first-seen order. Timezone tokens pass through verbatim; nothing is
// ever converted.
package timeparse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptohornet/internal/models"
)

// months maps lowercase month names to 1-12 for the natural-language
// families. Ukrainian, Russian, and English are the languages the
// watched announcement sections actually publish in.
var months = map[string]int{
	// uk
	"січня": 1, "лютого": 2, "березня": 3, "квітня": 4, "травня": 5, "червня": 6,
	"липня": 7, "серпня": 8, "вересня": 9, "жовтня": 10, "листопада": 11, "грудня": 12,
	// ru
	"января": 1, "февраля": 2, "марта": 3, "апреля": 4, "мая": 5, "июня": 6,
	"июля": 7, "августа": 8, "сентября": 9, "октября": 10, "ноября": 11, "декабря": 12,
	// en
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

const zonePattern = `(?:UTC|GMT)(?: ?[+\-]\d{1,2})?`

var (
	// 1) ISO-like with explicit zone: 2025-10-08 06:29[:01] UTC+8
	reISOZone = regexp.MustCompile(
		`(?i)\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})[ T](\d{1,2}):(\d{2})(?::(\d{2}))?(?: *(` + zonePattern + `))?\b`)

	// 2) Labelled: "Listing Time: 2025-10-08 06:00 UTC+8" and localized
	// equivalents.
	reLabelled = regexp.MustCompile(
		`(?i)(?:Открытие|Старт|Відкриття|Start|Listing\s*Time|Trading\s*(?:Starts|Opens)|Go-?Live)\s*[:\-–]\s*` +
			`(\d{4}[-/.]\d{1,2}[-/.]\d{1,2})[ T](\d{1,2}):(\d{2})(:\d{2})? *(` + zonePattern + `)?`)

	// 3) Time-first natural language: "15:00 UTC, 8 October 2025"
	reTimeFirst = regexp.MustCompile(
		`(?i)\b(\d{1,2}):(\d{2}) *(UTC|GMT)? *,? *(\d{1,2}) ([\p{L}]+) (\d{4})\b`)

	// 4) Date-first natural language: "8 October 2025 ... 15:00 UTC".
	// The gap cap bounds worst-case scanning, not correctness.
	reDateFirst = regexp.MustCompile(
		`(?is)\b(\d{1,2}) ([\p{L}]+) (\d{4})\b.{0,120}?\b(\d{1,2}):(\d{2}) *(UTC|GMT)?\b`)

	// 5) Zone-labelled short form: a bare time with a known zone
	// abbreviation, valid for same-day display only.
	reZoneShort = regexp.MustCompile(
		`\b(\d{1,2}):(\d{2}) *((?:UTC|GMT)(?:[+\-]\d{1,2})?|CET|CEST|EET|EEST|KST|JST|SGT|HKT|EST|EDT|PST|PDT)\b`)

	// 6) Localized "as observed in" form: "14:00 (as seen in Kyiv)",
	// "14:00 (за Києвом)".
	reCityForm = regexp.MustCompile(
		`(?i)\b(\d{1,2}):(\d{2}) *\((?:as seen in|за|по) [^)]+\)`)
)

func validHM(h, m int) bool {
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

func validDate(y, mo, d int) bool {
	return y >= 2000 && mo >= 1 && mo <= 12 && d >= 1 && d <= 31
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func monthNum(name string) int {
	return months[strings.ToLower(name)]
}

// zoneOffset parses a UTC/GMT token into a fixed offset. Regional
// abbreviations and absent tokens yield no instant; display is the
// source of truth either way.
func zoneOffset(tz string) (int, bool) {
	t := strings.ReplaceAll(strings.ToUpper(tz), " ", "")
	if t == "UTC" || t == "GMT" {
		return 0, true
	}
	if strings.HasPrefix(t, "UTC") || strings.HasPrefix(t, "GMT") {
		n, err := strconv.Atoi(t[3:])
		if err != nil {
			return 0, false
		}
		return n * 3600, true
	}
	return 0, false
}

func instantOf(y, mo, d, h, min, sec int, tz string) time.Time {
	offset, ok := zoneOffset(tz)
	if !ok {
		return time.Time{}
	}
	loc := time.UTC
	if offset != 0 {
		loc = time.FixedZone(strings.ReplaceAll(strings.ToUpper(tz), " ", ""), offset)
	}
	return time.Date(y, time.Month(mo), d, h, min, sec, 0, loc)
}

func withZone(display, tz string) string {
	if tz == "" {
		return display
	}
	return display + " " + strings.TrimSpace(strings.ToUpper(tz))
}

// ExtractAll runs every pattern family over text and returns the
// deduplicated candidate list in family order, first occurrence first.
func ExtractAll(text string) []models.TimeCandidate {
	t := strings.Join(strings.Fields(text), " ")
	var found []models.TimeCandidate

	// 1) ISO with optional zone
	for _, m := range reISOZone.FindAllStringSubmatch(t, -1) {
		y, mo, d := atoi(m[1]), atoi(m[2]), atoi(m[3])
		h, min := atoi(m[4]), atoi(m[5])
		if !validDate(y, mo, d) || !validHM(h, min) {
			continue
		}
		disp := fmt.Sprintf("%04d-%02d-%02d %02d:%02d", y, mo, d, h, min)
		sec := 0
		if m[6] != "" {
			sec = atoi(m[6])
			if sec > 59 {
				continue
			}
			disp += fmt.Sprintf(":%02d", sec)
		}
		found = append(found, models.TimeCandidate{
			Display: withZone(disp, m[7]),
			Instant: instantOf(y, mo, d, h, min, sec, m[7]),
		})
	}

	// 2) Labelled
	for _, m := range reLabelled.FindAllStringSubmatch(t, -1) {
		h, min := atoi(m[2]), atoi(m[3])
		if !validHM(h, min) {
			continue
		}
		if m[4] != "" && atoi(m[4][1:]) > 59 {
			continue
		}
		disp := m[1] + " " + m[2] + ":" + m[3] + m[4]
		found = append(found, models.TimeCandidate{Display: withZone(disp, m[5])})
	}

	// 3) Time-first
	for _, m := range reTimeFirst.FindAllStringSubmatch(t, -1) {
		h, min := atoi(m[1]), atoi(m[2])
		mo := monthNum(m[5])
		d, y := atoi(m[4]), atoi(m[6])
		if mo == 0 || !validHM(h, min) || !validDate(y, mo, d) {
			continue
		}
		disp := fmt.Sprintf("%04d-%02d-%02d %02d:%02d", y, mo, d, h, min)
		found = append(found, models.TimeCandidate{
			Display: withZone(disp, m[3]),
			Instant: instantOf(y, mo, d, h, min, 0, m[3]),
		})
	}

	// 4) Date-first
	for _, m := range reDateFirst.FindAllStringSubmatch(t, -1) {
		d, y := atoi(m[1]), atoi(m[3])
		mo := monthNum(m[2])
		h, min := atoi(m[4]), atoi(m[5])
		if mo == 0 || !validHM(h, min) || !validDate(y, mo, d) {
			continue
		}
		disp := fmt.Sprintf("%04d-%02d-%02d %02d:%02d", y, mo, d, h, min)
		found = append(found, models.TimeCandidate{
			Display: withZone(disp, m[6]),
			Instant: instantOf(y, mo, d, h, min, 0, m[6]),
		})
	}

	// 5) Zone-labelled short form (no date, same-day display only)
	for _, m := range reZoneShort.FindAllStringSubmatch(t, -1) {
		h, min := atoi(m[1]), atoi(m[2])
		if !validHM(h, min) {
			continue
		}
		found = append(found, models.TimeCandidate{
			Display: fmt.Sprintf("%02d:%02d %s", h, min, m[3]),
		})
	}

	// 6) City form, kept verbatim
	for _, m := range reCityForm.FindAllStringSubmatch(t, -1) {
		h, min := atoi(m[1]), atoi(m[2])
		if !validHM(h, min) {
			continue
		}
		found = append(found, models.TimeCandidate{Display: m[0]})
	}

	return dedup(found)
}

// dedup collapses candidates by exact display string, keeping the
// first occurrence.
func dedup(in []models.TimeCandidate) []models.TimeCandidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.Display] {
			continue
		}
		seen[c.Display] = true
		out = append(out, c)
	}
	return out
}

var rePair = regexp.MustCompile(`\b([A-Z0-9]{2,}) *(?:/|_|-)? *USDT(?:-M)?\b`)

// ExtractSymbols scans text for USDT pair tokens and returns the base
// symbols, uppercased, deduplicated, and sorted.
func ExtractSymbols(text string) []string {
	up := strings.ToUpper(text)
	set := map[string]bool{}
	for _, m := range rePair.FindAllStringSubmatch(up, -1) {
		sym := strings.TrimSpace(m[1])
		sym = strings.TrimSuffix(sym, "USDT")
		if sym == "" {
			continue
		}
		set[sym] = true
	}
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
