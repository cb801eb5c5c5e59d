package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves the AWS config for a sink. Static keys replace the
// default credential chain when both id and secret are set.
func loadAWSConfig(ctx context.Context, region string, access *AWSAccessConfig) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if access != nil && access.AccessKeyID != "" && access.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access.AccessKeyID, access.SecretAccessKey, access.SessionToken),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func awsEndpoint(access *AWSAccessConfig) string {
	if access == nil {
		return ""
	}
	return access.Endpoint
}

func eventAttributes(evt Event) map[string]string {
	return map[string]string{
		"event_name":  evt.Name,
		"source":      evt.Source,
		"status_code": strconv.Itoa(evt.StatusCode),
	}
}
