package clock

import "time"

// Clock stamps documents, votes and idempotency records. Implementations return UTC.
type Clock interface {
	Now() time.Time
}
