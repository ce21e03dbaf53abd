package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Physiological bands used as parse-confidence filters.
const (
	heartRateMin   = 30
	heartRateMax   = 250
	saturationMin  = 50
	saturationMax  = 100
	temperatureMin = 30.0
	temperatureMax = 45.0
	glucoseMin     = 30
	glucoseMax     = 600
	systolicMin    = 50
	systolicMax    = 250
	diastolicMin   = 30
	diastolicMax   = 150
	ageMax         = 130

	mmolToMgdl = 18.0
)

var (
	integerPattern     = regexp.MustCompile(`\d+`)
	heartUnitPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:bpm|battiti)`)
	saturationPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:%|percento|per\s+cento)`)
	temperaturePattern = regexp.MustCompile(`(\d+)(?:\s*\.\s*(\d+)|,(\d+)|,\s+(\d)\b)?`)
	glucoseMmolPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*mmol`)
	glucoseMgPattern   = regexp.MustCompile(`(?i)(\d+)\s*mg`)
	pressurePattern    = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:/|-|\bsu\b|\bover\b)\s*(\d{2,3})`)
	pressureWords      = regexp.MustCompile(`(?i)sistolica\D{0,12}(\d{2,3}).*?diastolica\D{0,12}(\d{2,3})`)
)

// HeartRate returns "<int> bpm" for the first plausible rate in raw.
func HeartRate(raw string) (string, bool) {
	if v, ok := firstIntInRange(heartUnitPattern, raw, heartRateMin, heartRateMax); ok {
		return fmt.Sprintf("%d bpm", v), true
	}
	if v, ok := firstIntInRange(integerPattern, raw, heartRateMin, heartRateMax); ok {
		return fmt.Sprintf("%d bpm", v), true
	}
	return "", false
}

// Oxygenation returns "<int>%" for the first saturation in [50,100].
func Oxygenation(raw string) (string, bool) {
	if v, ok := firstIntInRange(saturationPattern, raw, saturationMin, saturationMax); ok {
		return fmt.Sprintf("%d%%", v), true
	}
	if v, ok := firstIntInRange(integerPattern, raw, saturationMin, saturationMax); ok {
		return fmt.Sprintf("%d%%", v), true
	}
	return "", false
}

// Temperature returns "<value>°C". Split decimals such as "36. 8" or "36, 8"
// are rejoined before range checking. A comma followed by a space and more
// than one digit separates list items ("37, 80 bpm") and is not a decimal.
func Temperature(raw string) (string, bool) {
	for _, m := range temperaturePattern.FindAllStringSubmatch(raw, -1) {
		text := m[1]
		for _, fraction := range m[2:] {
			if fraction != "" {
				text += "." + fraction
				break
			}
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			continue
		}
		if v >= temperatureMin && v <= temperatureMax {
			return strconv.FormatFloat(v, 'f', -1, 64) + "°C", true
		}
	}
	return "", false
}

// BloodGlucose returns "<int> mg/dl"; mmol/L readings are converted first.
func BloodGlucose(raw string) (string, bool) {
	if m := glucoseMmolPattern.FindStringSubmatch(raw); m != nil {
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err == nil {
			mg := int(math.Round(v * mmolToMgdl))
			if mg >= glucoseMin && mg <= glucoseMax {
				return fmt.Sprintf("%d mg/dl", mg), true
			}
		}
		return "", false
	}
	if v, ok := firstIntInRange(glucoseMgPattern, raw, glucoseMin, glucoseMax); ok {
		return fmt.Sprintf("%d mg/dl", v), true
	}
	if v, ok := firstIntInRange(integerPattern, raw, glucoseMin, glucoseMax); ok {
		return fmt.Sprintf("%d mg/dl", v), true
	}
	return "", false
}

// BloodPressure returns "<sys>/<dia> mmHg" for the first valid pair.
func BloodPressure(raw string) (string, bool) {
	for _, m := range pressurePattern.FindAllStringSubmatch(raw, -1) {
		if out, ok := pressurePair(m[1], m[2]); ok {
			return out, true
		}
	}
	if m := pressureWords.FindStringSubmatch(raw); m != nil {
		if out, ok := pressurePair(m[1], m[2]); ok {
			return out, true
		}
	}
	return "", false
}

func pressurePair(sysText, diaText string) (string, bool) {
	sys, err1 := strconv.Atoi(sysText)
	dia, err2 := strconv.Atoi(diaText)
	if err1 != nil || err2 != nil {
		return "", false
	}
	if sys < systolicMin || sys > systolicMax || dia < diastolicMin || dia > diastolicMax || sys <= dia {
		return "", false
	}
	return fmt.Sprintf("%d/%d mmHg", sys, dia), true
}

// Age keeps the digits of the first number in [0,130]; anything else is
// passed through trimmed.
func Age(raw string) (string, bool) {
	if v, ok := firstIntInRange(integerPattern, raw, 0, ageMax); ok {
		return strconv.Itoa(v), true
	}
	return strings.TrimSpace(raw), false
}

func firstIntInRange(re *regexp.Regexp, raw string, lo, hi int) (int, bool) {
	for _, m := range re.FindAllStringSubmatch(raw, -1) {
		text := m[0]
		if len(m) > 1 {
			text = m[1]
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			continue
		}
		if v >= lo && v <= hi {
			return v, true
		}
	}
	return 0, false
}
