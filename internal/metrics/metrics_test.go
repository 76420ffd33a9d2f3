package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradeScope/internal/model"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.BlockProcessed(1, time.Second)
	m.TxChecked()
	m.MatchEmitted()
	m.Decoded([]model.SwapEvent{{Protocol: model.ProtocolUniswapV2}}, nil)
	m.Held(3)
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}

func TestMetricsCountAndServe(t *testing.T) {
	m := New()
	m.BlockProcessed(10, 50*time.Millisecond)
	m.MatchEmitted()
	m.MatchEmitted()
	m.Decoded(
		[]model.SwapEvent{{Protocol: model.ProtocolUniswapV3}},
		[]model.DecodeIssue{{Kind: model.IssueMalformed}, {Kind: model.IssueMalformed}},
	)
	m.Head(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"tradescope_blocks_processed_total 1",
		"tradescope_matches_emitted_total 2",
		`tradescope_decode_issues_total{kind="malformed"} 2`,
		`tradescope_swaps_decoded_total{protocol="uniswap-v3"} 1`,
		"tradescope_chain_head 42",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}
