package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/nusakarya/projectledger/internal/budget"
	"github.com/nusakarya/projectledger/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateBudgetWorkbook renders the variance report as a workbook: a
// summary sheet, a per-category breakdown, and the alert/forecast sheets
// when they carry data.
func (g *Generator) GenerateBudgetWorkbook(project model.Project, report budget.Report) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, project, report); err != nil {
		return nil, err
	}

	categorySheet := "Categories"
	file.NewSheet(categorySheet)
	if err := g.writeCategories(file, categorySheet, report.Categories); err != nil {
		return nil, err
	}

	if len(report.Alerts) > 0 {
		alertSheet := "Alerts"
		file.NewSheet(alertSheet)
		if err := g.writeAlerts(file, alertSheet, report.Alerts); err != nil {
			return nil, err
		}
	}

	if len(report.Forecast) > 0 {
		forecastSheet := "Forecast"
		file.NewSheet(forecastSheet)
		if err := g.writeForecast(file, forecastSheet, report.Forecast); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, project model.Project, report budget.Report) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Project")
	set("B1", fmt.Sprintf("%s (%s)", project.Name, project.ID))
	set("A2", "Client")
	set("B2", project.ClientName)
	set("A3", "Progress, %")
	set("B3", project.Progress)
	set("A4", "Data source")
	set("B4", string(report.Source))

	set("A6", "Total budget")
	set("B6", report.Summary.TotalBudget)
	set("A7", "Actual spend")
	set("B7", report.Summary.TotalActual)
	set("A8", "Committed spend")
	set("B8", report.Summary.TotalCommitted)
	set("A9", "Remaining budget")
	set("B9", report.Summary.RemainingBudget)
	set("A10", "Utilization, %")
	set("B10", report.Summary.UtilizationPercentage)

	return nil
}

func (g *Generator) writeCategories(file *excelize.File, sheet string, categories []budget.Category) error {
	headers := []string{"Category", "Budget", "Actual", "Committed", "Remaining", "Variance", "Variance %", "Utilization %", "Items", "Source"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for rowIdx, cat := range categories {
		values := []interface{}{
			cat.Category,
			cat.Budget,
			cat.Actual,
			cat.Committed,
			cat.Remaining,
			cat.VarianceAmount,
			cat.VariancePercentage,
			cat.UtilizationPercentage,
			cat.ItemCount,
			string(cat.Source),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) writeAlerts(file *excelize.File, sheet string, alerts []budget.Alert) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Severity")
	set("B1", "Category")
	set("C1", "Message")
	for i, alert := range alerts {
		row := i + 2
		set(fmt.Sprintf("A%d", row), string(alert.Severity))
		set(fmt.Sprintf("B%d", row), alert.Category)
		set(fmt.Sprintf("C%d", row), alert.Message)
	}
	return nil
}

func (g *Generator) writeForecast(file *excelize.File, sheet string, forecast []budget.ForecastPeriod) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Period")
	set("B1", "Projected spend")
	set("C1", "Confidence, %")
	set("D1", "Remaining after")
	for i, period := range forecast {
		row := i + 2
		set(fmt.Sprintf("A%d", row), period.Period)
		set(fmt.Sprintf("B%d", row), period.ProjectedSpend)
		set(fmt.Sprintf("C%d", row), period.Confidence)
		set(fmt.Sprintf("D%d", row), period.RemainingAfter)
	}
	return nil
}
