package store

import "fmt"

// MissingStoreError reports an update against a store file that does not
// exist. Updates never bootstrap the store; backfill is the path for that.
type MissingStoreError struct {
	Path string
}

func (e *MissingStoreError) Error() string {
	return fmt.Sprintf("store file %s does not exist; run a backfill first", e.Path)
}

// EmptyStoreError reports a store file with no usable as_of_date values, so
// no cursor can be computed from it.
type EmptyStoreError struct {
	Path string
}

func (e *EmptyStoreError) Error() string {
	return fmt.Sprintf("store file %s contains no valid as_of_date values", e.Path)
}

// SchemaError reports a mandatory column missing from the store.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("store is missing the mandatory %q column", e.Column)
}
