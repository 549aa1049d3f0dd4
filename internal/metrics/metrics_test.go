package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric failed: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCountersIncrement(t *testing.T) {
	rejected := StockRejectionsTotal.WithLabelValues("insufficient_stock")
	before := counterValue(t, rejected)
	rejected.Inc()
	if got := counterValue(t, rejected) - before; got != 1 {
		t.Fatalf("counter want +1 got %v", got)
	}

	created := counterValue(t, OrdersCreatedTotal)
	OrdersCreatedTotal.Inc()
	if counterValue(t, OrdersCreatedTotal)-created != 1 {
		t.Fatalf("orders created counter did not move")
	}
}
