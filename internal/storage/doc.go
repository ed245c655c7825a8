// Package storage is the save location for downloaded documents.
//
// A Store wraps a gocloud.dev/blob bucket, so the same code writes to a
// local directory, S3, GCS or an in-memory bucket in tests. Save replaces
// an existing entry of the same name by deleting it before the new object
// is written.
package storage
