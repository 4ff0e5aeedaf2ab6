package statestore

import (
	"strings"

	"github.com/streamdb/flowcore/pkg/streaming/errs"
)

// Open selects and constructs a backend from a -state-store URL. An empty
// string and "in_memory" both select the in-process backend; any
// unrecognized scheme is a startup error.
func Open(url string) (StateStore, error) {
	switch {
	case url == "" || url == "in_memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "tikv://"):
		endpoints := strings.Split(strings.TrimPrefix(url, "tikv://"), ",")
		return NewTiKVStore(endpoints)
	case strings.HasPrefix(url, "hummock+minio://"), strings.HasPrefix(url, "hummock+s3://"):
		return nil, errs.New(errs.NotImplemented, "%s", hummockUnsupported(url))
	default:
		return nil, errs.New(errs.Internal, "unknown state store scheme: %s", url)
	}
}
