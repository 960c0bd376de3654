package clientdata

import "time"

// TTLs added to time.Now() when storing to calculate expires_at.
const (
	// TTLExchangeRate keeps a fetched rate table fresh for one hour. Expired
	// tables remain readable as a stale fallback.
	TTLExchangeRate = time.Hour
)
