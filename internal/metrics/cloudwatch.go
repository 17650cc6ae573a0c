package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "YIYUN/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// metricPutter is the slice of the CloudWatch API we use
type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      metricPutter
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	go func() {
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := m.dimensions("Endpoint", endpoint)
		m.put(metricName, 1, types.StandardUnitCount, dimensions)
		m.put("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	}()
}

// RecordAnalysis counts analyses by source
func (m *Client) RecordAnalysis(_ context.Context, source string, duration time.Duration) {
	if !m.enabled {
		return
	}

	go func() {
		dimensions := m.dimensions("Source", source)
		m.put("Analyses", 1, types.StandardUnitCount, dimensions)
		m.put("AnalysisLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	}()
}

// RecordSynthesis counts final prompts by source and interface
func (m *Client) RecordSynthesis(_ context.Context, source, iface string) {
	if !m.enabled {
		return
	}

	go func() {
		dimensions := append(m.dimensions("Source", source), types.Dimension{
			Name:  aws.String("Interface"),
			Value: aws.String(iface),
		})
		m.put("Syntheses", 1, types.StandardUnitCount, dimensions)
	}()
}

// RecordGeneration records generation outcome and duration
func (m *Client) RecordGeneration(_ context.Context, iface, outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}

	go func() {
		dimensions := append(m.dimensions("Outcome", outcome), types.Dimension{
			Name:  aws.String("Interface"),
			Value: aws.String(iface),
		})
		m.put("Generations", 1, types.StandardUnitCount, dimensions)
		m.put("GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	}()
}

// RecordTokenUsage records upstream LLM token usage
func (m *Client) RecordTokenUsage(_ context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	if !m.enabled {
		return
	}

	go func() {
		dimensions := m.dimensions("Model", model)
		m.put("LLMTokens/Total", float64(totalTokens), types.StandardUnitCount, dimensions)
		m.put("LLMTokens/Input", float64(inputTokens), types.StandardUnitCount, dimensions)
		m.put("LLMTokens/Output", float64(outputTokens), types.StandardUnitCount, dimensions)
	}()
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{
			Name:  aws.String(name),
			Value: aws.String(value),
		},
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
}

func (m *Client) put(metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) {
	if err := m.putMetric(metricName, value, unit, dimensions); err != nil {
		log.Printf("Failed to record %s metric: %v", metricName, err)
	}
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}
