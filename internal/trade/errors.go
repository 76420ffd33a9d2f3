package trade

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the chain could not supply a transaction or receipt.
	ErrDataUnavailable = errors.New("chain data unavailable")
	// ErrNotFound is the genuine-absence case of ErrDataUnavailable.
	ErrNotFound = fmt.Errorf("%w: not found", ErrDataUnavailable)
)
