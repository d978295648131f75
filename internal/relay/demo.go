package relay

import "orderrelay/internal/models"

// DemoOrder возвращает фиксированный демонстрационный заказ для команды /demo.
func DemoOrder() models.Order {
	return models.Order{
		OrderID:        "907351",
		ServiceTitle:   "Выездная диагностика",
		City:           models.DefaultCity,
		Contract:       strPtr("907351"),
		Date:           strPtr("02.08.2025"),
		Time:           strPtr("10 утра"),
		Address:        strPtr("Москва, Академика Семенова 79к3"),
		ClientPresence: strPtr("с клиентом"),
		SumRub:         int64Ptr(13050),
		ToPayRub:       int64Ptr(0),
		Metro: []models.MetroPoint{
			{Name: "Потапово", DistanceKm: 1.55},
			{Name: "Бунинская аллея", DistanceKm: 1.7},
			{Name: "Новомосковская (Коммунарка)", DistanceKm: 2.67},
		},
		Details:          strPtr("Стандарт"),
		DistanceZoneNote: strPtr("Удалённость  Зона 2: 1250 руб."),
	}
}

func strPtr(s string) *string  { return &s }
func int64Ptr(v int64) *int64 { return &v }
