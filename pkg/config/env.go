package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotLockDuration = "SLOT_LOCK_DURATION"
	EnvSlotDurationMin  = "SLOT_DURATION_MIN"
	EnvDefaultOpenTime  = "DEFAULT_OPEN_TIME"
	EnvDefaultCloseTime = "DEFAULT_CLOSE_TIME"

	EnvPendingBookingTTL = "PENDING_BOOKING_TTL"
	EnvSweepInterval     = "SWEEP_INTERVAL"

	EnvUPIPayeeID   = "UPI_PAYEE_ID"
	EnvUPIPayeeName = "UPI_PAYEE_NAME"

	EnvEventsEnabled = "EVENTS_ENABLED"
)
