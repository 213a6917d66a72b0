package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/samber/lo"
)

// ListOptions controls how much pricing detail the listing includes.
type ListOptions struct {
	// IncludePrices adds each product's base-territory price.
	IncludePrices bool
	// IncludeLocalPrices adds every territory's price. Implies IncludePrices.
	IncludeLocalPrices bool
}

// ListRow is one line of the listing: a label and an optional price column.
type ListRow struct {
	Label string
	Value string
}

// ListService enumerates products and their current prices.
type ListService interface {
	List(ctx context.Context, opts ListOptions) ([]ListRow, error)
}

type listService struct {
	ServiceParams
}

func NewListService(params ServiceParams) ListService {
	return &listService{
		ServiceParams: params,
	}
}

func (s *listService) List(ctx context.Context, opts ListOptions) ([]ListRow, error) {
	purchases, err := s.Storefront.ListInAppPurchases(ctx, s.Config.AppStore.AppID)
	if err != nil {
		return nil, err
	}
	purchases = filterPurchases(purchases, s.Config.Pricing.Product)

	if !opts.IncludePrices && !opts.IncludeLocalPrices {
		return lo.Map(purchases, func(p pricing.InAppPurchase, _ int) ListRow {
			return ListRow{Label: p.ProductID}
		}), nil
	}

	reader := NewPriceReaderService(s.ServiceParams)
	baseTerritory := s.Config.Pricing.BaseTerritory

	var rows []ListRow
	for _, purchase := range purchases {
		base, err := reader.GetBasePrice(ctx, purchase, baseTerritory)
		if err != nil {
			if !ierr.IsNotFound(err) {
				return nil, err
			}
			rows = append(rows, ListRow{Label: purchase.ProductID, Value: "no manual price"})
			continue
		}

		rows = append(rows, ListRow{
			Label: purchase.ProductID,
			Value: fmt.Sprintf("%s %s", base.Point.CustomerPrice.String(), base.Currency),
		})

		if !opts.IncludeLocalPrices {
			continue
		}

		locals, err := reader.GetAllLocalPrices(ctx, purchase, baseTerritory)
		if err != nil {
			return nil, err
		}

		territories := lo.Keys(locals)
		sort.Strings(territories)
		for _, territory := range territories {
			price := locals[territory]
			rows = append(rows, ListRow{
				Label: "    " + territory,
				Value: fmt.Sprintf("%s %s", price.Point.CustomerPrice.String(), price.Currency),
			})
		}
	}
	return rows, nil
}

// RenderRows lays the rows out in two dot-padded columns.
func RenderRows(rows []ListRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}
	labelWidth += 4
	valueWidth += 4

	var b strings.Builder
	for _, row := range rows {
		if row.Value == "" {
			b.WriteString(row.Label)
			b.WriteString("\n")
			continue
		}
		b.WriteString(row.Label)
		b.WriteString(strings.Repeat(".", labelWidth-len(row.Label)))
		b.WriteString(strings.Repeat(".", valueWidth-len(row.Value)))
		b.WriteString(row.Value)
		b.WriteString("\n")
	}
	return b.String()
}
