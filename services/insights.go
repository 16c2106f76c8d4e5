package services

import (
	"catalog-scraper/models"
	"catalog-scraper/utils"
)

// InsightService computes analytics from the extracted dataset
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes all insights from a slice of records
func (s *InsightService) Generate(records []*models.Record) *models.InsightReport {
	report := &models.InsightReport{
		RecordsByCategory: make(map[string]int),
	}

	if len(records) == 0 {
		s.logger.Warn("No records to generate insights from")
		return report
	}

	var totalPrice float64
	for _, r := range records {
		report.TotalRecords++

		if r.Name == nil {
			report.MissingNameRecords++
		}

		if r.Category != nil {
			report.RecordsByCategory[*r.Category]++
		} else {
			report.RecordsByCategory["(none)"]++
		}

		// Price stats over records whose price parsed
		if r.PriceValue == nil {
			continue
		}
		price := *r.PriceValue
		if report.PricedRecords == 0 || price < report.MinPrice {
			report.MinPrice = price
		}
		if report.PricedRecords == 0 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = r
		}
		report.PricedRecords++
		totalPrice += price
	}

	if report.PricedRecords > 0 {
		report.AveragePrice = totalPrice / float64(report.PricedRecords)
	}

	return report
}
