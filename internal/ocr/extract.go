package ocr

import (
	"regexp"
	"sort"
	"strconv"
)

// Result is what was read off a meter photo.
type Result struct {
	RawText string `json:"rawText"`
	// Candidates are the plausible readings, largest first.
	Candidates []float64 `json:"candidates"`
	// CurrentReading is the largest candidate, nil if there was none.
	CurrentReading *float64 `json:"currentReading"`
	MeterSrNo      string   `json:"meterSrNo,omitempty"`
}

var (
	numberToken = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	serialToken = regexp.MustCompile(`^\d{8,}$`)
)

// Years printed on meter faces are not readings.
const (
	ignoredYearFrom = 2010
	ignoredYearTo   = 2024
)

// Extract finds candidate readings and a serial number in recognised text.
// Runs of 8 or more digits are taken as the serial, never as a reading.
func Extract(text string) Result {
	res := Result{RawText: text, Candidates: []float64{}}
	seen := map[float64]bool{}

	for _, tok := range numberToken.FindAllString(text, -1) {
		if serialToken.MatchString(tok) {
			if res.MeterSrNo == "" {
				res.MeterSrNo = tok
			}
			continue
		}

		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if isIgnoredYear(tok, v) || seen[v] {
			continue
		}
		seen[v] = true
		res.Candidates = append(res.Candidates, v)
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(res.Candidates)))
	if len(res.Candidates) > 0 {
		largest := res.Candidates[0]
		res.CurrentReading = &largest
	}
	return res
}

func isIgnoredYear(tok string, v float64) bool {
	if len(tok) != 4 {
		return false
	}
	return v >= ignoredYearFrom && v <= ignoredYearTo
}
