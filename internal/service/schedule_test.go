package service

import (
	"testing"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	"github.com/playforge/asc-pricer/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ScheduleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ScheduleService
	params  ServiceParams
}

func TestScheduleService(t *testing.T) {
	suite.Run(t, new(ScheduleServiceSuite))
}

func (s *ScheduleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:     s.GetLogger(),
		Config:     s.GetConfig(),
		Storefront: s.GetStorefront(),
	}
	s.service = NewScheduleService(s.params)
}

func (s *ScheduleServiceSuite) TestBuildSchedulePutsBaseFirst() {
	base := pricing.PricePoint{ID: "pp-base", CustomerPrice: decimal.RequireFromString("4.99"), Territory: "USA"}
	locals := map[string]pricing.PricePoint{
		"DEU": {ID: "pp-deu", Territory: "DEU"},
		"JPN": {ID: "pp-jpn", Territory: "JPN"},
	}

	submission, err := BuildSchedule("iap-1", "USA", base, locals)
	s.NoError(err)
	s.Len(submission.Entries, 3)
	s.Equal("USA", submission.Entries[0].Territory)
	s.Equal("pp-base", submission.Entries[0].PricePointID)
	// locals follow in deterministic order
	s.Equal("DEU", submission.Entries[1].Territory)
	s.Equal("JPN", submission.Entries[2].Territory)
}

func (s *ScheduleServiceSuite) TestBuildScheduleTemporaryIDs() {
	base := pricing.PricePoint{ID: "pp-base", Territory: "USA"}

	submission, err := BuildSchedule("iap-1", "USA", base, nil)
	s.NoError(err)
	s.Require().Len(submission.Entries, 1)
	tempID := submission.Entries[0].TemporaryID
	s.NotEmpty(tempID)
	// platform expects the ${guid} placeholder format
	s.Regexp(`^\$\{[0-9a-f-]{36}\}$`, tempID)
}

func (s *ScheduleServiceSuite) TestBuildScheduleIgnoresBaseDuplicateInLocals() {
	base := pricing.PricePoint{ID: "pp-base", Territory: "USA"}
	locals := map[string]pricing.PricePoint{
		"USA": {ID: "pp-other", Territory: "USA"},
		"DEU": {ID: "pp-deu", Territory: "DEU"},
	}

	submission, err := BuildSchedule("iap-1", "USA", base, locals)
	s.NoError(err)
	s.Len(submission.Entries, 2)
	s.Equal("pp-base", submission.Entries[0].PricePointID)
}

func (s *ScheduleServiceSuite) TestApplyResolvesAndSubmits() {
	store := s.GetStorefront()
	store.SetCatalog("iap-1", "USA", catalogPoints("USA", "1.99", "2.99", "4.99"))
	store.SetCatalog("iap-1", "DEU", catalogPoints("DEU", "1.99", "4.49", "5.99"))

	setup := pricing.ProductPriceSetup{
		Product:       pricing.InAppPurchase{ID: "iap-1", ProductID: "com.example.gold"},
		BasePrice:     decimal.RequireFromString("4.99"),
		BaseTerritory: "USA",
		LocalPrices: map[string]decimal.Decimal{
			"DEU": decimal.RequireFromString("4.50"),
		},
	}

	scheduleID, err := s.service.Apply(s.GetContext(), setup)
	s.NoError(err)
	s.NotEmpty(scheduleID)

	submission := store.LastSubmission()
	s.Require().NotNil(submission)
	s.Equal("USA", submission.BaseTerritory)
	s.Len(submission.Entries, 2)
	s.Equal("USA-2", submission.Entries[0].PricePointID)
	s.Equal("DEU-1", submission.Entries[1].PricePointID)
}

func (s *ScheduleServiceSuite) TestApplySkipsUnresolvableTerritory() {
	store := s.GetStorefront()
	store.SetCatalog("iap-1", "USA", catalogPoints("USA", "4.99"))
	// DEU has no catalog at all

	setup := pricing.ProductPriceSetup{
		Product:       pricing.InAppPurchase{ID: "iap-1", ProductID: "com.example.gold"},
		BasePrice:     decimal.RequireFromString("4.99"),
		BaseTerritory: "USA",
		LocalPrices: map[string]decimal.Decimal{
			"DEU": decimal.RequireFromString("4.50"),
		},
	}

	_, err := s.service.Apply(s.GetContext(), setup)
	s.NoError(err)

	submission := store.LastSubmission()
	s.Require().NotNil(submission)
	s.Len(submission.Entries, 1)
	s.Equal("USA", submission.Entries[0].Territory)
}

func (s *ScheduleServiceSuite) TestApplyFailsWhenBaseUnresolvable() {
	setup := pricing.ProductPriceSetup{
		Product:       pricing.InAppPurchase{ID: "iap-1", ProductID: "com.example.gold"},
		BasePrice:     decimal.RequireFromString("4.99"),
		BaseTerritory: "USA",
	}

	_, err := s.service.Apply(s.GetContext(), setup)
	s.Error(err)
	s.Nil(s.GetStorefront().LastSubmission())
}

func (s *ScheduleServiceSuite) TestApplyRejectsInvalidSetup() {
	setup := pricing.ProductPriceSetup{
		Product:       pricing.InAppPurchase{ID: "iap-1", ProductID: "com.example.gold"},
		BasePrice:     decimal.RequireFromString("4.99"),
		BaseTerritory: "USA",
		LocalPrices: map[string]decimal.Decimal{
			"USA": decimal.RequireFromString("4.99"),
		},
	}

	_, err := s.service.Apply(s.GetContext(), setup)
	s.Error(err)
}
