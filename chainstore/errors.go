package chainstore

import "github.com/pkg/errors"

// ErrDuplicateBlock is returned by InsertBlock when the block's hash is
// already present. It is idempotent: the caller should treat it as success,
// not failure.
var ErrDuplicateBlock = errors.New("duplicate block")

// ErrUnknownParent is returned by InsertBlock when neither the block's
// parent header nor any header chain leading to it is known. The caller
// decides whether to hold the block as an orphan or reject it outright.
var ErrUnknownParent = errors.New("unknown parent")

// ErrCorruptData is returned when stored bytes fail to deserialize into
// their expected shape. It is fatal: the operator must intervene (resync or
// restore from backup).
var ErrCorruptData = errors.New("corrupt store data")

// ErrNotFound is returned by read accessors when the requested key does not
// exist in the store.
var ErrNotFound = errors.New("not found")
