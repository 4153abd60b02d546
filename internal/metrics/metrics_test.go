package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestForwardsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(Forwards.WithLabelValues("forwarded"))
	Forwards.WithLabelValues("forwarded").Inc()
	if got := testutil.ToFloat64(Forwards.WithLabelValues("forwarded")); got != before+1 {
		t.Errorf("forwarded = %v, want %v", got, before+1)
	}
}
