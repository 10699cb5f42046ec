package timezone

import (
	"time"
	_ "time/tzdata"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		panic(err)
	}
}

// the score system reports semesters in Taiwan local time, snapshots are
// stamped in the same zone regardless of where the process runs.
func Now() time.Time {
	return time.Now().In(Location)
}
