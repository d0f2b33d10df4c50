package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportService_AttendanceWorkbook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	present := env.advisor(t, "asesor1", "Grupo A")
	env.advisor(t, "asesor2", "Grupo B")

	yes := true
	_, err := env.userService().MarkAttendance(ctx, present.ID, &AttendanceRequest{Fecha: testToday, Presente: &yes})
	require.NoError(t, err)

	svc := NewReportService(env.dashboardService(nil, nil), env.logger)
	data, name, err := svc.AttendanceWorkbook(ctx, &AttendanceQuery{Fecha: testToday})
	require.NoError(t, err)
	assert.Equal(t, "asistencia_2025-03-10.xlsx", name)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetAttendance, sheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(sheetAttendance)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Nombre", "Usuario", "Grupo", "Campaña", "Asistencia"}, rows[0])
	assert.Equal(t, "asesor1", rows[1][1])
	assert.Equal(t, AttendancePresent, rows[1][4])
	assert.Equal(t, AttendanceUnmarked, rows[2][4])

	summary, err := f.GetRows(sheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 4)
	assert.Equal(t, []string{"Total", "1", "0", "1"}, summary[3])

	t.Run("invalid query", func(t *testing.T) {
		_, _, err := svc.AttendanceWorkbook(ctx, &AttendanceQuery{Fecha: "10-03-2025"})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}
