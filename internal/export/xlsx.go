// Package export renders dashboard lists as xlsx workbooks
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"transporter-dashboard/internal/metrics"
	"transporter-dashboard/internal/models"
)

// ContentType is the MIME type of the workbooks written here
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateTimeLayout = "2006-01-02 15:04"

var requestHeaders = []string{
	"Request ID", "Origin", "Destination", "Planned Pickup", "Trucks", "Estimated Distance (km)",
	"Estimated Cost", "Status", "Priority", "Actual Pickup", "Actual Trucks", "Invoice Amount",
	"Cost Variance", "Cost Variance %", "Pickup Delay (min)",
}

var transporterHeaders = []string{
	"Company", "Deliveries", "Score", "Score Trend", "On-Time Rate %", "On-Time Trend",
	"Cost Variance %", "Cost Trend", "Driver Rating", "Quality Score",
}

// Requests writes one row per request. Delivered requests also get their variance columns.
func Requests(requests []models.TransportationRequest) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(requests))
	for _, r := range requests {
		row := []interface{}{
			r.ID.String(),
			r.Origin,
			r.Destination,
			formatTime(r.PlannedPickupDateTime),
			intOrBlank(r.TruckCount),
			r.EstimatedDistance,
			floatOrBlank(r.EstimatedCost),
			string(r.Status),
			r.Priority,
		}
		if r.Delivery != nil {
			d := r.Delivery
			row = append(row, formatTime(d.ActualPickupDateTime), intOrBlank(d.ActualTruckCount), floatOrBlank(d.InvoiceAmount))
			if report, err := metrics.ComputeVariance(r, *d); err == nil {
				pct := ""
				if v, ok := report.CostVariance.Percentage.Value(); ok {
					pct = fmt.Sprintf("%.1f", v)
				}
				row = append(row, report.CostVariance.Variance, pct, report.TimeVariance.VarianceMinutes)
			}
		}
		rows = append(rows, row)
	}
	return workbook("Requests", requestHeaders, rows)
}

// Transporters writes the transporter ranking
func Transporters(rows []models.TransporterComparison) (*bytes.Buffer, error) {
	out := make([][]interface{}, 0, len(rows))
	for _, t := range rows {
		out = append(out, []interface{}{
			t.Company, t.TotalDeliveries, t.Score, t.ScoreTrend, t.OnTimeRate, t.OnTimeTrend,
			t.CostVariance, t.CostTrend, t.DriverRating, t.QualityScore,
		})
	}
	return workbook("Transporters", transporterHeaders, out)
}

func workbook(sheetName string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for r, values := range rows {
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheetName, "A", last, 18)

	if f.GetSheetName(0) != sheetName {
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}

func formatTime(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeLayout)
}

func intOrBlank(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrBlank(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
