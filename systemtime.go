package ethercat

import "time"

// epoch used by SystemTime: 2000-01-01T00:00:00Z.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// SystemTime is a monotonic timestamp expressed as nanoseconds since
// 2000-01-01, matching the distributed-clock hardware's native epoch. The
// caller is the sole source of SystemTime values; no task or component ever
// reads a global clock.
type SystemTime uint64

// Now converts a wall-clock time.Time into a SystemTime. Provided as a
// convenience for callers wiring a real clock; the engine itself never calls
// it.
func Now(t time.Time) SystemTime {
	return SystemTime(t.Sub(epoch).Nanoseconds())
}

func (t SystemTime) Add(d time.Duration) SystemTime {
	return t + SystemTime(d.Nanoseconds())
}

// Sub returns t-u as a time.Duration, saturating at zero if u is after t.
func (t SystemTime) Sub(u SystemTime) time.Duration {
	if u > t {
		return 0
	}
	return time.Duration(t - u)
}

func (t SystemTime) Before(u SystemTime) bool { return t < u }
func (t SystemTime) After(u SystemTime) bool  { return t > u }

func (t SystemTime) Time() time.Time {
	return epoch.Add(time.Duration(t))
}
