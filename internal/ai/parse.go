package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/model"
)

const (
	usdToInr          = 75.0
	analysisMaxRunes  = 800
	defaultPartsEntry = "Required parts will be determined after inspection"
)

var (
	complexityPattern = regexp.MustCompile(`(?i)complexity\W{0,6}(low|medium|high)`)
	costPattern       = regexp.MustCompile(`(?i)cost[^\n]*?(\d+(?:\.\d+)?)[^\n]*?(\d+(?:\.\d+)?)`)
	timePattern       = regexp.MustCompile(`(?i)time[^\n]*?(\d+(?:\.\d+)?)[^\n]*?(\d+(?:\.\d+)?)`)
	partsPattern      = regexp.MustCompile(`(?i)suggested parts\W*?:([\s\S]*?)(?:\n\s*\n|$)`)
	listMarkerPattern = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
	ErrParseFailed    = errors.New("parse_failed")
)

// DiagnosticEstimate is the structured reading of a free-text diagnosis.
type DiagnosticEstimate struct {
	Analysis          string
	FormattedAnalysis string
	Complexity        model.Complexity
	Cost              model.CostEstimate
	Time              model.TimeEstimate
	SuggestedParts    []string
}

// ParseDiagnostic never fails: every field the text does not yield falls back
// to a conservative default.
func ParseDiagnostic(text string) DiagnosticEstimate {
	est := DiagnosticEstimate{
		Analysis:          truncateRunes(text, analysisMaxRunes),
		FormattedAnalysis: text,
		Complexity:        model.ComplexityMedium,
		Time:              model.TimeEstimate{Min: 1, Max: 3},
		SuggestedParts:    []string{defaultPartsEntry},
	}
	minCost, maxCost := 50.0, 150.0

	if m := complexityPattern.FindStringSubmatch(text); len(m) >= 2 {
		est.Complexity = model.Complexity(strings.ToLower(m[1]))
	}
	if lo, hi, ok := findRange(costPattern, text); ok {
		minCost, maxCost = lo, hi
	}
	if lo, hi, ok := findRange(timePattern, text); ok {
		est.Time = model.TimeEstimate{Min: lo, Max: hi}
	}
	est.Cost = model.CostEstimate{
		Min:    minCost,
		Max:    maxCost,
		MinInr: math.Round(minCost * usdToInr),
		MaxInr: math.Round(maxCost * usdToInr),
	}
	if parts := parseParts(text); len(parts) > 0 {
		est.SuggestedParts = parts
	}
	return est
}

func findRange(re *regexp.Regexp, text string) (float64, float64, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 3 {
		return 0, 0, false
	}
	lo, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

func parseParts(text string) []string {
	m := partsPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	var parts []string
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		line = listMarkerPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.Trim(line, "*_"))
		if line == "" {
			continue
		}
		low := strings.ToLower(line)
		if strings.Contains(low, "n/a") || strings.Contains(low, "none") {
			continue
		}
		parts = append(parts, line)
	}
	return parts
}

// VerificationVerdict is the model's decision on completion evidence.
type VerificationVerdict struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// ParseVerification reads the JSON verdict, tolerating code fences and prose
// around the object.
func ParseVerification(text string) (*VerificationVerdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object", ErrParseFailed)
	}
	var v VerificationVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	v.Message = strings.TrimSpace(v.Message)
	if v.Message == "" {
		if v.Verified {
			v.Message = "Repair completion verified."
		} else {
			v.Message = "The completion photo does not show the repaired item clearly."
		}
	}
	return &v, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
