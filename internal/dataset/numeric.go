package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumeric parses a cell using locale-tolerant rules: "1.234,5", "1,234.5",
// "12%" and "1 000" are all accepted. See decimalSep for how a lone ',' or '.'
// is read.
func ParseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if IsMissing(raw) {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)

	dec := decimalSep(raw)
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// decimalSep picks the decimal separator. With both ',' and '.' present the
// last one wins. A separator repeated ("1,234,567", "1.234.567") groups
// thousands. A single comma followed by exactly three digits after a 1-3
// digit group ("1,234") groups thousands too, unless spaces already do.
func decimalSep(raw string) rune {
	commas, dots := strings.Count(raw, ","), strings.Count(raw, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			return ','
		}
		return '.'
	case commas > 1:
		return '.'
	case commas == 1:
		if !strings.Contains(raw, " ") && thousandsGroup(raw, strings.IndexByte(raw, ',')) {
			return '.'
		}
		return ','
	case dots > 1:
		return ','
	}
	return '.'
}

func thousandsGroup(raw string, sep int) bool {
	head := strings.TrimLeft(raw[:sep], "+-")
	tail := raw[sep+1:]
	if len(tail) != 3 || len(head) < 1 || len(head) > 3 || head[0] == '0' {
		return false
	}
	return allDigits(head) && allDigits(tail)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true,
}

// IsMissing reports whether a cell holds no value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// inferKind picks the narrowest kind every non-empty cell satisfies.
func inferKind(rows [][]string, col int) Kind {
	seen := false
	isInt, isFloat := true, true
	for _, r := range rows {
		v := strings.TrimSpace(r[col])
		if IsMissing(v) {
			continue
		}
		seen = true
		if isInt {
			if _, ok := parseInt(v); !ok {
				isInt = false
			}
		}
		if !isInt {
			if _, ok := ParseNumeric(v); !ok {
				isFloat = false
				break
			}
		}
	}
	switch {
	case !seen:
		return KindString
	case isInt:
		return KindInt
	case isFloat:
		return KindFloat
	default:
		return KindString
	}
}
