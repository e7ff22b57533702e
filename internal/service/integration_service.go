package service

import (
	"context"
	"fmt"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/repository"
)

// IntegrationService exposes the integration state tracker to the app
type IntegrationService interface {
	// ListIntegrations returns one entry per supported provider, in provider order.
	// Providers the user never touched are reported as not_connected.
	ListIntegrations(ctx context.Context, userID string) ([]domain.Integration, error)
}

type integrationService struct {
	integrations repository.IntegrationRepository
}

// NewIntegrationService creates an integration service
func NewIntegrationService(integrations repository.IntegrationRepository) IntegrationService {
	return &integrationService{integrations: integrations}
}

func (s *integrationService) ListIntegrations(ctx context.Context, userID string) ([]domain.Integration, error) {
	rows, err := s.integrations.ListIntegrations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	byProvider := make(map[domain.Provider]domain.Integration, len(rows))
	for _, row := range rows {
		byProvider[row.Provider] = row
	}

	result := make([]domain.Integration, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		if row, ok := byProvider[p]; ok {
			result = append(result, row)
			continue
		}
		result = append(result, domain.Integration{
			UserID:   userID,
			Provider: p,
			Status:   domain.StatusNotConnected,
		})
	}
	return result, nil
}
