package e

// Constants in here define error codes that are unique to a package/file.
// The first two characters define the package, within this repo, and the
// second two characters define the file within that package. Each returned
// error appends a further two character id that is unique within the file,
// i.e. ECode010101 = Code0101 + "01".
//
// Valid values for the characters are: 0-9 and A-Z.

const (
	// package: sql
	Code0101 = "0101" // package:sql | sql/sql.go
	Code0102 = "0102" // package:sql | sql/row.go
	Code0103 = "0103" // package:sql | sql/rows.go

	// package: store
	Code0201 = "0201" // package:store | store/sql_store.go
	Code0202 = "0202" // package:store | store/json.go
	Code0203 = "0203" // package:store | store/memory.go

	// package: remote
	Code0301 = "0301" // package:remote | remote/postgres.go
	Code0302 = "0302" // package:remote | remote/memory.go
	Code0303 = "0303" // package:remote | remote/remote.go

	// package: sync
	Code0401 = "0401" // package:sync | sync/manager.go
	Code0402 = "0402" // package:sync/model | sync/model/queue_item.go

	// package: progress
	Code0501 = "0501" // package:progress | progress/progress.go

	// package: wordprogress
	Code0601 = "0601" // package:wordprogress | wordprogress/word_progress.go

	// package: telemetry
	Code0701 = "0701" // package:telemetry | telemetry/kafka.go

	// package: kafka
	Code0800 = "0800" // package:kafka | kafka/connection.go
	Code0801 = "0801" // package:kafka_aws_ec2 | kafka/aws/ec2/sasl.go

	// package: migration
	Code0901 = "0901" // package:migration | migration/migrator.go
	Code0902 = "0902" // package:migration | migration/list.go
	Code0903 = "0903" // package:migration | migration/sqlmodel.go

	// package: config
	Code0A01 = "0A01" // package:config | config/config.go
)
