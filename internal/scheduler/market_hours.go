package scheduler

import "time"

// kstLocation is loaded once; every market-hours decision in this
// package operates on a single clock expressed in KST, per spec.md §5.
var kstLocation = mustLoadLocation("Asia/Seoul")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fixed KST offset fallback; only reached if the platform's tzdata
		// is missing, which would otherwise make market gating impossible.
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

func nowKST() time.Time {
	return time.Now().In(kstLocation)
}

func secondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// isKRMarketOpen reports whether the KRX is open at t (already in KST):
// weekdays, 09:00:00 through 15:30:00 inclusive.
func isKRMarketOpen(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	s := secondsSinceMidnight(t)
	return s >= 9*3600 && s <= 15*3600+30*60
}

// isUSMarketOpen reports whether US equities are open at t (already in
// KST), per spec.md §4.9: 23:30:00 of weekday d through 06:00:00 of the
// following day, accounting for the overnight boundary.
func isUSMarketOpen(t time.Time) bool {
	s := secondsSinceMidnight(t)
	wd := t.Weekday()

	switch {
	case s >= 23*3600+30*60:
		return wd >= time.Monday && wd <= time.Friday
	case s <= 6*3600:
		return wd != time.Monday && wd != time.Sunday
	default:
		return false
	}
}
