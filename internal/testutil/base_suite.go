package testutil

import (
	"context"

	"github.com/playforge/asc-pricer/internal/config"
	"github.com/playforge/asc-pricer/internal/logger"
	"github.com/stretchr/testify/suite"
)

// BaseServiceTestSuite provides common setup for service tests: a fresh
// in-memory storefront, default config and a quiet logger per test.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	cfg        *config.Configuration
	log        *logger.Logger
	storefront *InMemoryStorefront
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()

	s.cfg = config.GetDefaultConfig()
	s.cfg.AppStore.AppID = "app-1"
	s.cfg.Logging.Level = config.LogLevelWarn

	log, err := logger.NewLogger(s.cfg)
	s.Require().NoError(err)
	s.log = log

	s.storefront = NewInMemoryStorefront()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.log
}

func (s *BaseServiceTestSuite) GetStorefront() *InMemoryStorefront {
	return s.storefront
}
