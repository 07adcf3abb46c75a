package watch

import "strings"

// Strategy names one way two normalized phones may be considered equal.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyExact       Strategy = "exact"
	StrategyLast11      Strategy = "last_11"
	StrategyLast10      Strategy = "last_10"
	StrategyLast9       Strategy = "last_9"
	StrategyContainment Strategy = "containment"
	StrategyMobileNine  Strategy = "mobile_nine"
)

type matcher struct {
	name  Strategy
	match func(watched, incoming string) bool
}

// matchers are ordered from strictest to most lenient. Each one is total:
// lengths are checked before slicing.
var matchers = []matcher{
	{StrategyExact, func(a, b string) bool { return a == b }},
	{StrategyLast11, suffixEqual(11)},
	{StrategyLast10, suffixEqual(10)},
	{StrategyLast9, suffixEqual(9)},
	{StrategyContainment, contains},
	{StrategyMobileNine, mobileNineEqual},
}

func suffixEqual(n int) func(a, b string) bool {
	return func(a, b string) bool {
		if len(a) < n || len(b) < n {
			return false
		}
		return a[len(a)-n:] == b[len(b)-n:]
	}
}

const minContainmentLen = 9

func contains(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minContainmentLen {
		return false
	}
	return strings.Contains(long, short)
}

// mobileNineEqual treats 55+DDD+9+8 and 55+DDD+8 as the same line.
func mobileNineEqual(a, b string) bool {
	long, short := a, b
	if len(long) < len(short) {
		long, short = short, long
	}
	if len(long) != 13 || len(short) != 12 {
		return false
	}
	return long[:4]+long[5:] == short
}
