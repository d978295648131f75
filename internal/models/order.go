package models

// DefaultCity подставляется, если город в заказе не указан.
const DefaultCity = "Москва"

// MetroPoint - станция метро и расстояние до нее.
type MetroPoint struct {
	Name       string  `json:"name" validate:"required"`
	DistanceKm float64 `json:"distance_km" validate:"gte=0"`
}

// Order - заказ на выезд, публикуемый в чат.
// Создается только валидатором (utils.ParseOrder) или relay.DemoOrder и после этого не изменяется.
// Необязательные строковые поля: nil - поле отсутствует.
type Order struct {
	OrderID      string `json:"order_id"`
	ServiceTitle string `json:"service_title" validate:"required"`
	City         string `json:"city"`

	Contract       *string `json:"contract,omitempty"`
	Date           *string `json:"date,omitempty"`
	Time           *string `json:"time,omitempty"`
	Address        *string `json:"address,omitempty"`
	ClientPresence *string `json:"client_presence,omitempty"`

	AdLinks       []string `json:"ad_links" validate:"dive,abs_url"`
	MapsLink      *string  `json:"maps_link,omitempty" validate:"omitempty,abs_url"`
	NavigatorLink *string  `json:"navigator_link,omitempty" validate:"omitempty,abs_url"`

	SumRub   *int64 `json:"sum_rub,omitempty"`
	ToPayRub *int64 `json:"to_pay_rub,omitempty"`

	Metro            []MetroPoint `json:"metro" validate:"dive"`
	Details          *string      `json:"details,omitempty"`
	DistanceZoneNote *string      `json:"distance_zone_note,omitempty"`
}
