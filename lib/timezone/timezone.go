package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(err)
	}
}

// force the portal's timezone because our servers may end up anywhere,
// and the ordering cutoff is defined in the canteen's wall-clock time,
// which matters when manipulating dates based on <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}
