package chain

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
)

// IsNotFound reports whether the node answered that the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

// IsFatal reports errors that retrying cannot fix, such as a rejected API key.
func IsFatal(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return false
}
