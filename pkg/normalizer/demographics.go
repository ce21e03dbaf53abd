package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

var (
	maleVariants = []string{
		"m", "maschio", "maschile", "male", "uomo", "man", "boy", "ragazzo",
		"masculine", "masculino", "homme", "hombre",
	}
	femaleVariants = []string{
		"f", "femmina", "femminile", "female", "donna", "woman", "girl", "ragazza",
		"feminine", "feminino", "femme", "mujer",
	}
	otherVariants = []string{"o", "altro", "other", "non binario", "non-binary"}
)

// Gender maps a free-text sex/gender mention to M, F or O. Exact matches win
// over word matches, which win over substrings; female substrings are tried
// first because "female" and "woman" contain male variants.
func Gender(raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return GenderOther, false
	}
	if g, ok := exactGender(v); ok {
		return g, true
	}
	for _, word := range words(v) {
		if g, ok := exactGender(word); ok {
			return g, true
		}
	}
	for _, variant := range femaleVariants {
		if len(variant) > 1 && strings.Contains(v, variant) {
			return GenderFemale, true
		}
	}
	for _, variant := range maleVariants {
		if len(variant) > 1 && strings.Contains(v, variant) {
			return GenderMale, true
		}
	}
	return GenderOther, false
}

func exactGender(v string) (string, bool) {
	switch {
	case contains(maleVariants, v):
		return GenderMale, true
	case contains(femaleVariants, v):
		return GenderFemale, true
	case contains(otherVariants, v):
		return GenderOther, true
	}
	return "", false
}

var months = map[string]time.Month{
	"gennaio": time.January, "gen": time.January,
	"febbraio": time.February, "feb": time.February,
	"marzo": time.March, "mar": time.March,
	"aprile": time.April, "apr": time.April,
	"maggio": time.May, "mag": time.May,
	"giugno": time.June, "giu": time.June,
	"luglio": time.July, "lug": time.July,
	"agosto": time.August, "ago": time.August,
	"settembre": time.September, "set": time.September, "sett": time.September,
	"ottobre": time.October, "ott": time.October,
	"novembre": time.November, "nov": time.November,
	"dicembre": time.December, "dic": time.December,
}

var (
	yearFirstDate  = regexp.MustCompile(`\b(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})\b`)
	dayFirstDate   = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})\b`)
	shortYearDate  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2})\b`)
	dayMonthName   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:di\s+)?(\p{L}+)\.?\s+(?:del\s+)?(\d{4})\b`)
	monthNameFirst = regexp.MustCompile(`(?i)\b(\p{L}+)\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
)

// twoDigitYearPivot splits two-digit years between the 2000s and the 1900s.
const twoDigitYearPivot = 30

// BirthDate returns an ISO yyyy-mm-dd date. Unparsable input comes back
// trimmed and lowercased so a reviewer can still see it.
func BirthDate(raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return "", false
	}

	if m := yearFirstDate.FindStringSubmatch(v); m != nil {
		if out, ok := isoDate(m[1], m[2], m[3]); ok {
			return out, true
		}
	}
	if m := dayFirstDate.FindStringSubmatch(v); m != nil {
		if out, ok := isoDate(m[3], m[2], m[1]); ok {
			return out, true
		}
	}
	if m := shortYearDate.FindStringSubmatch(v); m != nil {
		yy, _ := strconv.Atoi(m[3])
		year := 1900 + yy
		if yy < twoDigitYearPivot {
			year = 2000 + yy
		}
		if out, ok := isoDate(strconv.Itoa(year), m[2], m[1]); ok {
			return out, true
		}
	}
	if m := dayMonthName.FindStringSubmatch(v); m != nil {
		if month, ok := months[m[2]]; ok {
			if out, ok := isoDate(m[3], strconv.Itoa(int(month)), m[1]); ok {
				return out, true
			}
		}
	}
	if m := monthNameFirst.FindStringSubmatch(v); m != nil {
		if month, ok := months[m[1]]; ok {
			if out, ok := isoDate(m[3], strconv.Itoa(int(month)), m[2]); ok {
				return out, true
			}
		}
	}
	return v, false
}

func isoDate(yearText, monthText, dayText string) (string, bool) {
	year, err1 := strconv.Atoi(yearText)
	month, err2 := strconv.Atoi(monthText)
	day, err3 := strconv.Atoi(dayText)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

var triageWords = map[string]clinical.TriageCode{
	"bianco": clinical.TriageWhite, "bianca": clinical.TriageWhite, "white": clinical.TriageWhite,
	"verde": clinical.TriageGreen, "green": clinical.TriageGreen,
	"giallo": clinical.TriageYellow, "gialla": clinical.TriageYellow, "yellow": clinical.TriageYellow,
	"rosso": clinical.TriageRed, "rossa": clinical.TriageRed, "red": clinical.TriageRed,
	"nero": clinical.TriageBlack, "nera": clinical.TriageBlack, "black": clinical.TriageBlack,
}

// Triage maps a code word ("codice rosso", "Yellow") onto the triage
// vocabulary. Unknown words fall back to white.
func Triage(raw string) (string, bool) {
	for _, word := range words(strings.ToLower(raw)) {
		if code, ok := triageWords[word]; ok {
			return string(code), true
		}
	}
	return string(clinical.TriageWhite), false
}

func words(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
