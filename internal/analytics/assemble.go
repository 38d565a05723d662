package analytics

import "stockpulse/backend/internal/domain"

func AssembleSales(buckets []domain.Bucket, cmp domain.ComparisonResult) domain.SalesAnalytics {
	if buckets == nil {
		buckets = []domain.Bucket{}
	}
	return domain.SalesAnalytics{
		CurrentPeriod:    buckets,
		TotalRevenue:     finite(cmp.TotalRevenue),
		PercentageChange: finite(cmp.PercentageChange),
		IsPositive:       cmp.IsPositive,
	}
}

func AssembleGeneral(top *domain.ExtremeSeller, low *domain.ExtremeSeller) domain.GeneralAnalytics {
	return domain.GeneralAnalytics{TopProduct: top, LowProduct: low}
}
