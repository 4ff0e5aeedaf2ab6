package statestore

import "fmt"

// hummockUnsupported is returned for the `hummock+minio://` and
// `hummock+s3://` schemes: the log-structured object-store engine behind
// them is an external collaborator and out of scope here. The scheme must
// still parse and fail with a named, typed error rather than an
// unrecognized-flag panic.
func hummockUnsupported(scheme string) error {
	return fmt.Errorf("state store scheme %q refers to an external object-store engine and is not implemented by this module", scheme)
}
