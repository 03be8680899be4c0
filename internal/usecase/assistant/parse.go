package assistant

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reTenure = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(months?|mos?|years?|yrs?)\b`)
	reAmount = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)?\s*(\d[\d,]*(?:\.\d+)?)\s*(lakhs?|lacs?|l|k|thousand|crores?|cr)?\b`)
	reYes    = regexp.MustCompile(`(?i)\b(yes|yeah|yep|confirm|confirmed|correct|proceed|ok|okay|sure|go ahead)\b`)
	reNo     = regexp.MustCompile(`(?i)\b(no|nope|cancel|change|different)\b`)
)

// minAmount filters out stray numbers ("2 kids") when looking for an amount.
const minAmount = 1000

// parseTenure reads "36 months" or "3 years" and returns months.
func parseTenure(msg string) (int, bool) {
	m := reTenure.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "y") {
		n *= 12
	}
	return n, true
}

// parseAmount reads "5 lakh", "₹2,50,000", "75k" or "1.5 crore". The tenure
// phrase is stripped first so "36 months" is never taken as an amount.
func parseAmount(msg string) (float64, bool) {
	msg = reTenure.ReplaceAllString(msg, " ")
	for _, m := range reAmount.FindAllStringSubmatch(msg, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "lakh", "lakhs", "lac", "lacs", "l":
			v *= 100_000
		case "k", "thousand":
			v *= 1_000
		case "crore", "crores", "cr":
			v *= 10_000_000
		}
		if v >= minAmount {
			return v, true
		}
	}
	return 0, false
}

func isAffirmative(msg string) bool { return reYes.MatchString(msg) && !reNo.MatchString(msg) }

func isNegative(msg string) bool { return reNo.MatchString(msg) }

func mentionsTerms(msg string) bool {
	_, amount := parseAmount(msg)
	_, tenure := parseTenure(msg)
	return amount || tenure
}
