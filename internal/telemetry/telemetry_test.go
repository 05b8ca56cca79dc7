package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitExportsOtelMetricsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	shutdown, err := Init(context.Background(), Config{ServiceName: "saferoute-test"}, reg)
	require.NoError(t, err)
	defer shutdown(context.Background())

	counter, err := otel.Meter("telemetry_test").Int64Counter("route_sample")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "route_sample") {
			found = true
			require.NotEmpty(t, mf.GetMetric())
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "otel counter not exported")
}

func TestInitRequiresRegistry(t *testing.T) {
	_, err := Init(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}

func TestInitTracerProducesRecordingSpans(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, prometheus.NewRegistry())
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "sample")
	defer span.End()
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
}
