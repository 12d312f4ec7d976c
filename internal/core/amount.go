package core

import (
	"strconv"
	"strings"
)

// ParseAmount reads the longest numeric prefix of s, accepting a comma as the
// decimal separator. Input with no numeric prefix yields 0.
//
// Examples:
//
//	ParseAmount("12.5")   -> 12.5
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("300abc") -> 300
//	ParseAmount("abc")    -> 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(v)
}

func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

// ParseGoal reads an integer goal the same lenient way; anything unusable becomes DefaultGoal.
func ParseGoal(s string) int {
	v := int(ParseAmount(s))
	if v <= 0 {
		return DefaultGoal
	}
	return v
}
