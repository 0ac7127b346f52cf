/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	streamssdk "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
)

// NewDynamoDBClient initializes a DynamoDB client using AWS credentials.
func NewDynamoDBClient(ctx context.Context, awsAccessKey, awsSecretKey, awsRegion string) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// NewStreamsClient initializes a DynamoDB Streams client using AWS credentials.
func NewStreamsClient(ctx context.Context, awsAccessKey, awsSecretKey, awsRegion string) (*streamssdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return streamssdk.NewFromConfig(cfg), nil
}
