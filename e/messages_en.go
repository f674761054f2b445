package e

// This defines reusable error messages

const (
	MsgUnknownInternalServerError = "Unknown Internal Server Error"

	// progress
	MsgDatabaseConfiguration = "Database configuration error. Please contact support."

	// word progress
	MsgWordProgressNotFound = "Word progress record not found"

	// remote
	MsgSingleRowExpected = "JSON object requested, multiple (or no) rows returned"

	// migrations
	MsgMigrationCodeVersionDNE  = "Migration code/version does not exist"
	MsgMigrationNone            = "No migrations exist yet"
	MsgMigrationFileNameInvalid = "Invalid migration file name"
)
