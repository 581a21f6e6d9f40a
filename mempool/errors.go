package mempool

import "github.com/pkg/errors"

// ErrDuplicateTransaction is returned by InsertVerified when the transaction
// hash is already present in the pool.
var ErrDuplicateTransaction = errors.New("transaction already in mempool")

// ErrConflictingInput is returned by InsertVerified when an input spends an
// outpoint another pool transaction already claims.
var ErrConflictingInput = errors.New("outpoint already spent by another mempool transaction")
