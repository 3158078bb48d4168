package blockfile

import "time"

// recentWindow is the wall-clock window (§4.1) within which a block's
// header timestamp is considered "recent" for durability purposes.
const recentWindow = 24 * time.Hour

// syncHeightStride triggers a sync every N blocks regardless of
// timestamp, so bulk initial block download still gets periodic fsyncs.
const syncHeightStride = 20000

// ShouldSync implements the §4.1/§9 should_sync predicate: true if
// recordTime (unix seconds) is within 24h of wall-clock now, or height
// is a multiple of 20000. Both the file descriptor fsync and the
// KV-environment sync (issued by the chaindb façade after commit) share
// this predicate.
func ShouldSync(recordTime int64, height int32, now time.Time) bool {
	if height >= 0 && height%syncHeightStride == 0 {
		return true
	}
	t := time.Unix(recordTime, 0)
	delta := now.Sub(t)
	if delta < 0 {
		delta = -delta
	}
	return delta <= recentWindow
}
