package events

// SchemaReloaded is emitted after the schema files were rebuilt. Err is set
// when the rebuild failed and the previous schema stayed in place.
type SchemaReloaded struct {
	Files      []string
	Generation uint64
	Err        error
}
