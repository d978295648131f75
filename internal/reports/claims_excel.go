package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"orderrelay/internal/models"
)

const claimsSheet = "Взятые заказы"

var claimsHeaders = []string{"ID заказа", "Чат", "Сообщение", "ID специалиста", "Имя специалиста", "Время взятия (UTC)"}

// ClaimsWorkbook формирует Excel-файл с журналом взятых заказов.
func ClaimsWorkbook(records []models.ClaimRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile создает Sheet1, переименовываем его вместо создания второго листа.
	if err := f.SetSheetName("Sheet1", claimsSheet); err != nil {
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}

	for i, header := range claimsHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(claimsSheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.OrderID,
			rec.ChatID,
			rec.MessageID,
			rec.ClaimantID,
			rec.ClaimantName,
			rec.ClaimedAt.UTC().Format("02.01.2006 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(claimsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("ошибка записи ячейки %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("ошибка сохранения Excel файла: %w", err)
	}
	return buf.Bytes(), nil
}
