package handlers

import (
	"github.com/omaguva-store/payments-service/internal/clients"
	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/service"
)

// Handlers holds all HTTP handlers for the payments service.
type Handlers struct {
	reconciliation *service.ReconciliationService
	phonePeAudit   *clients.HTTPPhonePeClient
	config         *config.Config
	logger         *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	reconciliation *service.ReconciliationService,
	phonePeAudit *clients.HTTPPhonePeClient,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		reconciliation: reconciliation,
		phonePeAudit:   phonePeAudit,
		config:         cfg,
		logger:         logging.New("handlers"),
	}
}
