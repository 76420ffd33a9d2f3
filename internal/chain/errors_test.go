package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
)

func TestIsFatal(t *testing.T) {
	unauthorized := fmt.Errorf("get block: %w", rpc.HTTPError{StatusCode: 401, Status: "401 Unauthorized"})
	if !IsFatal(unauthorized) {
		t.Fatalf("401 should be fatal")
	}
	if IsFatal(rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}) {
		t.Fatalf("503 should be transient")
	}
	if IsFatal(errors.New("i/o timeout")) {
		t.Fatalf("plain errors should be transient")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("receipt: %w", ethereum.NotFound)) {
		t.Fatalf("wrapped NotFound not detected")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatalf("unexpected not found")
	}
}

func TestWrappedNativeAndInterval(t *testing.T) {
	weth, ok := WrappedNative(1)
	if !ok || weth.Hex() != "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" {
		t.Fatalf("mainnet WETH mismatch: %s", weth.Hex())
	}
	if _, ok := WrappedNative(999999); ok {
		t.Fatalf("unexpected entry for unknown chain")
	}
	if d, ok := KnownBlockInterval(56); !ok || d.Seconds() != 3 {
		t.Fatalf("bsc interval mismatch: %v", d)
	}
}
