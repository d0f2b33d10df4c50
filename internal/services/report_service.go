package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const (
	sheetAttendance = "Asistencia"
	sheetSummary    = "Resumen"

	// XLSXContentType is the media type of exported workbooks
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type reportService struct {
	dashboard DashboardService
	logger    *slog.Logger
}

func NewReportService(dashboard DashboardService, logger *slog.Logger) ReportService {
	return &reportService{dashboard: dashboard, logger: logger}
}

// AttendanceWorkbook exports the attendance dashboard as XLSX and returns it with a file name
func (s *reportService) AttendanceWorkbook(ctx context.Context, query *AttendanceQuery) ([]byte, string, error) {
	data, err := s.dashboard.Attendance(ctx, query)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetAttendance); err != nil {
		return nil, "", fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, "", fmt.Errorf("failed to add summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeAttendanceSheet(f, data, header); err != nil {
		return nil, "", err
	}
	if err := writeSummarySheet(f, data, header); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Attendance exported", "fecha", data.Fecha, "rows", len(data.Usuarios))
	return buf.Bytes(), fmt.Sprintf("asistencia_%s.xlsx", data.Fecha), nil
}

func writeAttendanceSheet(f *excelize.File, data *AttendanceDashboard, headerStyle int) error {
	rows := [][]interface{}{{"Nombre", "Usuario", "Grupo", "Campaña", "Asistencia"}}
	for _, u := range data.Usuarios {
		rows = append(rows, []interface{}{u.Nombre, u.Usuario, u.GrupoNombre, u.CampaniaNombre, u.Asistencia})
	}
	if err := writeRows(f, sheetAttendance, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetAttendance, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetColWidth(sheetAttendance, "A", "D", 28)
}

func writeSummarySheet(f *excelize.File, data *AttendanceDashboard, headerStyle int) error {
	rows := [][]interface{}{{"Grupo", "Presentes", "Ausentes", "Sin marcar"}}
	for _, g := range data.Grupos {
		rows = append(rows, []interface{}{g.GrupoNombre, g.Presentes, g.Ausentes, g.SinMarcar})
	}
	rows = append(rows, []interface{}{"Total", data.Totales.Presentes, data.Totales.Ausentes, data.Totales.SinMarcar})

	if err := writeRows(f, sheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "D1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetColWidth(sheetSummary, "A", "A", 28)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
