package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLExchangeRate     = time.Hour        // FX rate sets
	TTLCurrentPrice     = 10 * time.Minute // latest quote used by risk assessment
	TTLHistoricalCloses = 12 * time.Hour   // daily closes for replay; today's close settles once
)

// StaleGrace is how long an expired entry is kept as a fallback for
// providers that are down before cleanup removes it.
const StaleGrace = 7 * 24 * time.Hour
