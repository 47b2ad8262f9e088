// Package awscloudwatch publishes scan and remediation outcomes as
// CloudWatch custom metrics.
package awscloudwatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/common"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "AccountGuard"

var _ audit.Sink = (*Publisher)(nil)

// Publisher is an audit.Sink writing CloudWatch metrics.
type Publisher struct {
	client    common.CloudWatchClient
	namespace string
}

// New returns a Publisher. An empty namespace means DefaultNamespace.
func New(client common.CloudWatchClient, namespace string) *Publisher {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Publisher{client: client, namespace: namespace}
}

// ScanCompleted publishes the score and the issue count per severity.
func (p *Publisher) ScanCompleted(ctx context.Context, r *models.AnalysisResult) error {
	data := []types.MetricDatum{{
		MetricName: aws.String("PostureScore"),
		Value:      aws.Float64(float64(r.Score)),
		Unit:       types.StandardUnitNone,
		Timestamp:  aws.Time(r.Timestamp),
	}}
	for _, sev := range models.AllSeverities() {
		data = append(data, types.MetricDatum{
			MetricName: aws.String("Issues"),
			Dimensions: []types.Dimension{{Name: aws.String("Severity"), Value: aws.String(string(sev))}},
			Value:      aws.Float64(float64(r.Counts.Get(sev))),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(r.Timestamp),
		})
	}
	return p.put(ctx, data)
}

// ActionExecuted publishes one count per remediation outcome.
func (p *Publisher) ActionExecuted(ctx context.Context, _ string, d models.RemediationDetail) error {
	outcome := "Failed"
	if d.Success {
		outcome = "Succeeded"
	}
	return p.put(ctx, []types.MetricDatum{{
		MetricName: aws.String("RemediationActions"),
		Dimensions: []types.Dimension{
			{Name: aws.String("Action"), Value: aws.String(string(d.Action))},
			{Name: aws.String("Outcome"), Value: aws.String(outcome)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(d.ExecutedAt),
	}})
}

func (p *Publisher) put(ctx context.Context, data []types.MetricDatum) error {
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", common.Classify("cloudwatch.PutMetricData", err))
	}
	return nil
}
