package broker

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestStorageMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	hook := NewStorageMetrics(mp.Meter("test"))
	hook.ObserveWrite(5*time.Millisecond, 120)
	hook.ObserveRead(time.Millisecond, 80)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	seen := map[string]bool{}
	var bytes int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			seen[m.Name] = true
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "toyo.storage.bytes" {
				for _, dp := range sum.DataPoints {
					bytes += dp.Value
				}
			}
		}
	}
	for _, n := range []string{"toyo.storage.write.duration", "toyo.storage.read.duration", "toyo.storage.bytes"} {
		if !seen[n] {
			t.Errorf("missing %s", n)
		}
	}
	if bytes != 200 {
		t.Fatalf("bytes = %d", bytes)
	}
}

func TestSpanName(t *testing.T) {
	for cmd, want := range map[string]string{
		"put":  "toyo.broker.put",
		"get":  "toyo.broker.get",
		"done": "toyo.broker.done",
		"nope": "toyo.broker.unknown",
	} {
		if got := spanName(cmd); got != want {
			t.Errorf("spanName(%q) = %q", cmd, got)
		}
	}
}
