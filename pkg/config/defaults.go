package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "turfbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Slot locks are reclaimed after this age, both lazily on read and by
	// the background sweep.
	DefaultSlotLockDuration = 180 * time.Second
	DefaultSlotDurationMin  = 60
	DefaultDefaultOpenTime  = "06:00"
	DefaultDefaultCloseTime = "23:00"

	// Pending bookings whose payment never arrived are swept to cancelled
	// after this age.
	DefaultPendingBookingTTL = 30 * time.Minute
	DefaultSweepInterval     = 5 * time.Minute

	DefaultUPIPayeeID   = "turfbook@upi"
	DefaultUPIPayeeName = "Turfbook Sports"

	DefaultEventsEnabled = false

	DefaultPaginationLimit = 100
)
