package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes operational metrics to CloudWatch. Publishing is
// best-effort: failures are logged and never surfaced to the caller.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
	logger    *zap.Logger
}

// NewMetrics creates a metrics publisher. When disabled every call is a no-op.
func NewMetrics(client *cloudwatch.Client, namespace string, enabled bool, logger *zap.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		enabled:   enabled,
		logger:    logger,
	}
}

// RecordRecompute reports one connection recomputation.
func (m *Metrics) RecordRecompute(ctx context.Context, duration time.Duration, added, removed int) {
	m.put(ctx,
		datum("RecomputeDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
		datum("ConnectionsAdded", float64(added), types.StandardUnitCount),
		datum("ConnectionsRemoved", float64(removed), types.StandardUnitCount),
	)
}

// RecordSerendipity reports one structural-hole search.
func (m *Metrics) RecordSerendipity(ctx context.Context, duration time.Duration, found bool) {
	foundVal := 0.0
	if found {
		foundVal = 1.0
	}
	m.put(ctx,
		datum("SerendipityDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
		datum("SerendipityFound", foundVal, types.StandardUnitCount),
	)
}

func datum(name string, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
}

func (m *Metrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m == nil || !m.enabled || m.client == nil {
		return
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Warn("Failed to publish metrics", zap.Error(err))
	}
}
