// Package kafka_aws_ec2 signs telemetry producer connections to an MSK cluster
// with IAM. The instance role supplies the credentials unless others are given.
package kafka_aws_ec2

import (
	"context"

	"github.com/Skyrin/go-safar/e"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/aws_msk_iam_v2"
)

const (
	ECode080101 = e.Code0801 + "01"
	ECode080102 = e.Code0801 + "02"
)

// SASLMechanismConfig the cluster region, and optionally the credentials to
// sign with in place of the instance role
type SASLMechanismConfig struct {
	Region      string
	Credentials aws.CredentialsProvider
}

// NewSASLMechanism returns the MSK IAM mechanism for the telemetry writer.
// Credentials are cached and refreshed before they expire
func NewSASLMechanism(ctx context.Context, c SASLMechanismConfig) (sasl.Mechanism, error) {
	if c.Region == "" {
		return nil, e.N(ECode080101, "kafka region is required for iam auth")
	}

	provider := c.Credentials
	if provider == nil {
		provider = ec2rolecreds.New()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(aws.NewCredentialsCache(provider)),
	)
	if err != nil {
		return nil, e.W(err, ECode080102, c.Region)
	}

	return aws_msk_iam_v2.NewMechanism(awsCfg), nil
}
