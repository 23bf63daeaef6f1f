package schema

import "errors"

// Failures of the startup sequence. Each is wrapped with the step that
// failed and is meant to halt the process; none is retried.
var (
	ErrStorageConnection = errors.New("storage connection")
	ErrSchemaInspection  = errors.New("schema inspection")
	ErrMigrationStep     = errors.New("migration step")
)
