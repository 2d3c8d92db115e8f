package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/application/services"
	"polymath-backend/infrastructure/ai"
	"polymath-backend/infrastructure/config"
	"polymath-backend/infrastructure/messaging/eventbridge"
	"polymath-backend/infrastructure/persistence/dynamodb"
	"polymath-backend/pkg/observability"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads the AWS SDK configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client.
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideItemRepository creates the item repository.
func ProvideItemRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ItemRepository {
	return dynamodb.NewItemRepository(client, cfg.DynamoDBTable, cfg.EmbeddedIndexName, logger)
}

// ProvideEdgeRepository creates the edge repository.
func ProvideEdgeRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EdgeRepository {
	return dynamodb.NewEdgeRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the EventBridge publisher.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the CloudWatch metrics publisher.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	return observability.NewMetrics(client, cfg.MetricsNamespace, cfg.EnableMetrics, logger)
}

// ProvideOpenAIClient creates the OpenAI API client.
func ProvideOpenAIClient(cfg *config.Config, logger *zap.Logger) (*ai.OpenAIClient, error) {
	return ai.NewOpenAIClient(cfg, logger)
}

// ProvideEmbeddingService exposes the OpenAI client as the embedding port.
func ProvideEmbeddingService(client *ai.OpenAIClient) ports.EmbeddingService {
	return client
}

// ProvideLanguageModel exposes the OpenAI client as the language model port.
func ProvideLanguageModel(client *ai.OpenAIClient) ports.LanguageModel {
	return client
}

// ProvideBridgeReasoner creates the bridge reasoner.
func ProvideBridgeReasoner(llm ports.LanguageModel, logger *zap.Logger) ports.BridgeReasoner {
	return ai.NewBridgeReasoner(llm, logger)
}

// ProvideConnectionService creates the connection service.
func ProvideConnectionService(
	items ports.ItemRepository,
	edges ports.EdgeRepository,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.ConnectionService {
	return services.NewConnectionService(items, edges, publisher, metrics, logger)
}

// ProvideEdgeService creates the edge service.
func ProvideEdgeService(
	items ports.ItemRepository,
	edges ports.EdgeRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.EdgeService {
	return services.NewEdgeService(items, edges, publisher, logger)
}

// ProvideSerendipityService creates the serendipity service.
func ProvideSerendipityService(
	items ports.ItemRepository,
	reasoner ports.BridgeReasoner,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.SerendipityService {
	return services.NewSerendipityService(items, reasoner, metrics, logger)
}
