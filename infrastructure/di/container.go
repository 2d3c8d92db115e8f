package di

import (
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/application/services"
	"polymath-backend/infrastructure/config"
	"polymath-backend/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	ItemRepo          ports.ItemRepository
	EdgeRepo          ports.EdgeRepository
	EventPublisher    ports.EventPublisher
	EmbeddingService  ports.EmbeddingService
	BridgeReasoner    ports.BridgeReasoner
	Metrics           *observability.Metrics
	ConnectionService *services.ConnectionService
	EdgeService       *services.EdgeService
	Serendipity       *services.SerendipityService
}
