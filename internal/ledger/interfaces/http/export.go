package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	ledger "sensoralert/internal/ledger/domain"
)

// BuildAlertHistoryPDF renders an alert history report for one company.
func BuildAlertHistoryPDF(companyID string, records []ledger.AlertRecord, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alert History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Company: %s", companyID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(records)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(38, 6, "Created", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Sensor", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Direction", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Threshold", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Delivery", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range records {
		pdf.CellFormat(38, 6, record.CreatedAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, record.SensorID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, record.SensorType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, record.Severity, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, record.Direction, "1", 0, "C", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.2f", record.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.2f", record.Threshold), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, deliverySummary(record.Delivery), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertHistoryXLSX renders an alert history workbook for one company.
func BuildAlertHistoryXLSX(companyID string, records []ledger.AlertRecord, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	alertsSheet := "alerts"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(alertsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Alert History")
	_ = f.SetCellValue(summarySheet, "A3", "Company")
	_ = f.SetCellValue(summarySheet, "B3", companyID)
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", generatedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Alerts")
	_ = f.SetCellValue(summarySheet, "B5", len(records))

	headers := []string{"Created", "Sensor", "Location", "Type", "Severity", "Direction", "Value", "Threshold", "Unit", "Message", "Delivery", "Settled"}
	for i, header := range headers {
		column, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(alertsSheet, column+"1", header)
	}
	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("A%d", row), record.CreatedAt.Format(time.RFC3339))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("B%d", row), record.SensorID)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("C%d", row), record.LocationID)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("D%d", row), record.SensorType)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("E%d", row), record.Severity)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("F%d", row), record.Direction)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("G%d", row), record.Value)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("H%d", row), record.Threshold)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("I%d", row), record.Unit)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("J%d", row), record.Message)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("K%d", row), deliverySummary(record.Delivery))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("L%d", row), record.Terminal)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deliverySummary(delivery map[ledger.Channel]ledger.Delivery) string {
	if len(delivery) == 0 {
		return "none"
	}
	summary := ""
	for _, channel := range []ledger.Channel{ledger.ChannelEmail, ledger.ChannelSMS, ledger.ChannelPush} {
		status, ok := delivery[channel]
		if !ok {
			continue
		}
		state := "failed"
		if status.Succeeded {
			state = "ok"
		} else if !status.Attempted {
			state = "skipped"
		}
		if summary != "" {
			summary += ", "
		}
		summary += string(channel) + "=" + state
	}
	if summary == "" {
		return "none"
	}
	return summary
}
