package engine

// DefaultMaxScan is the default number of records one Execute call may
// inspect. Zero or negative disables the quota.
const DefaultMaxScan = 0

// QuotaEnforcer counts scanned records and enforces a maximum.
//
// Each Execute call has its own QuotaEnforcer instance.
type QuotaEnforcer struct {
	maxScan int
	current int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A non-positive limit never trips.
func NewQuotaEnforcer(maxScan int) *QuotaEnforcer {
	return &QuotaEnforcer{maxScan: maxScan}
}

// Check increments the counter and validates it against the limit.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.maxScan > 0 && q.current > q.maxScan {
		return NewQuotaError(q.current, q.maxScan)
	}
	return nil
}

// Current returns the number of records scanned so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxScan returns the limit.
func (q *QuotaEnforcer) MaxScan() int {
	return q.maxScan
}
