package utils

import "time"

// Cambodia time (ICT, +07:00)
var shopLoc = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Phnom_Penh"); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*3600)
}()

func ShopLocation() *time.Location { return shopLoc }

// Use explicit "seconds" variant for DB storage
func NowUnixSeconds() int64 { return time.Now().Unix() }

// FromUnixSeconds converts an epoch in seconds to shop time; zero for t<=0.
func FromUnixSeconds(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).In(shopLoc)
}

func FormatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(shopLoc).Format(time.RFC3339)
}

// FormatUnixPtr renders a nullable unix-seconds column, "" when unset.
func FormatUnixPtr(t *int64) string {
	if t == nil {
		return ""
	}
	return FormatRFC3339(FromUnixSeconds(*t))
}
