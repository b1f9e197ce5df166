package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchAPI is the subset of the CloudWatch client we depend on.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Publisher ships operational counters (cache hits/misses, audit ship
// failures) to CloudWatch. Publishing is best-effort: failures are logged
// and swallowed, and a nil *Publisher is a safe no-op so callers never have
// to branch on whether metrics are enabled.
type Publisher struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewPublisher returns a Publisher bound to a metric namespace.
func NewPublisher(client CloudWatchAPI, namespace string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Count publishes a single count datum. Dimensions are optional.
func (p *Publisher) Count(ctx context.Context, name string, dimensions map[string]string) {
	if p == nil || p.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Timestamp:  awsTime(p.nowFunc()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      awsFloat(1),
	}
	for k, v := range dimensions {
		k, v := k, v
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{Name: &k, Value: &v})
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &p.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil && p.logger != nil {
		p.logger.Warn("put metric data failed", zap.String("metric", name), zap.Error(err))
	}
}

func awsTime(t time.Time) *time.Time { return &t }
func awsFloat(f float64) *float64    { return &f }
