package service

import (
	"github.com/playforge/asc-pricer/internal/config"
	"github.com/playforge/asc-pricer/internal/domain/pricing"
	"github.com/playforge/asc-pricer/internal/logger"
)

// ServiceParams is the common dependency bag for all services. Services embed
// it and construct sibling services from it as needed.
type ServiceParams struct {
	Logger     *logger.Logger
	Config     *config.Configuration
	Storefront pricing.Storefront
}
