package utils

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderrelay/internal/apperr"
	"orderrelay/internal/models"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Reason
	}
	return out
}

func TestParseOrderMinimal(t *testing.T) {
	t.Parallel()

	o, err := ParseOrder([]byte(`{"order_id":"A1","service_title":"  Эксперт на день  "}`))
	require.NoError(t, err)

	assert.Equal(t, "A1", o.OrderID)
	assert.Equal(t, "Эксперт на день", o.ServiceTitle)
	assert.Equal(t, models.DefaultCity, o.City)
	require.NotNil(t, o.ToPayRub)
	assert.Equal(t, int64(0), *o.ToPayRub)
	assert.Nil(t, o.SumRub)
	assert.Nil(t, o.Contract)
	assert.Empty(t, o.AdLinks)
	assert.Empty(t, o.Metro)
}

func TestParseOrderFull(t *testing.T) {
	t.Parallel()

	raw := `{
		"order_id": 907351,
		"service_title": "Выездная диагностика",
		"city": "Химки",
		"contract": "907351",
		"date": "02.08.2025",
		"time": "10 утра",
		"address": "Химки, Ленинградская 1",
		"client_presence": "с клиентом",
		"ad_links": ["https://avito.ru/1", "https://auto.ru/2"],
		"maps_link": "https://yandex.ru/maps/?pt=37,55",
		"navigator_link": null,
		"sum_rub": 13050,
		"to_pay_rub": 1500.0,
		"metro": [{"name": "Планерная", "distance_km": 1.5}],
		"details": "Стандарт",
		"distance_zone_note": "Зона 2: 1250 руб.",
		"unknown_key": {"ignored": true}
	}`

	o, err := ParseOrder([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "907351", o.OrderID)
	assert.Equal(t, "Химки", o.City)
	require.NotNil(t, o.Contract)
	assert.Equal(t, "907351", *o.Contract)
	assert.Equal(t, []string{"https://avito.ru/1", "https://auto.ru/2"}, o.AdLinks)
	require.NotNil(t, o.MapsLink)
	assert.Nil(t, o.NavigatorLink)
	assert.Equal(t, int64(13050), *o.SumRub)
	assert.Equal(t, int64(1500), *o.ToPayRub)
	assert.Equal(t, []models.MetroPoint{{Name: "Планерная", DistanceKm: 1.5}}, o.Metro)
	assert.Equal(t, "Зона 2: 1250 руб.", *o.DistanceZoneNote)
}

func TestParseOrderServiceTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing", raw: `{"order_id":"1"}`},
		{name: "empty", raw: `{"order_id":"1","service_title":""}`},
		{name: "blank", raw: `{"order_id":"1","service_title":" \t\n "}`},
		{name: "null", raw: `{"order_id":"1","service_title":null}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseOrder([]byte(tt.raw))
			fields := fieldsOf(t, err)
			assert.Equal(t, map[string]string{"service_title": "service_title must be non-empty"}, fields)
		})
	}
}

func TestParseOrderCollectsAllFailures(t *testing.T) {
	t.Parallel()

	raw := `{
		"service_title": 5,
		"contract": 12,
		"ad_links": ["https://ok.ru/1", "not a url", 7],
		"maps_link": "/relative/path",
		"navigator_link": "",
		"sum_rub": "13050",
		"to_pay_rub": 10.5,
		"metro": [
			{"name": "", "distance_km": 1},
			{"name": "Сокол", "distance_km": -2},
			{"name": "Аэропорт", "distance_km": "far"},
			{"distance_km": 1},
			"Динамо"
		]
	}`

	_, err := ParseOrder([]byte(raw))
	fields := fieldsOf(t, err)

	assert.Equal(t, map[string]string{
		"order_id":             "field required",
		"service_title":        "must be a string",
		"contract":             "must be a string",
		"ad_links[1]":          "must be an absolute URL with scheme and host",
		"ad_links[2]":          "must be a string",
		"maps_link":            "must be an absolute URL with scheme and host",
		"navigator_link":       "must be an absolute URL with scheme and host",
		"sum_rub":              "must be an integer",
		"to_pay_rub":           "must be an integer",
		"metro[0].name":        "must be non-empty",
		"metro[1].distance_km": "must be non-negative",
		"metro[2].distance_km": "must be a number",
		"metro[3].name":        "field required",
		"metro[4]":             "must be an object",
	}, fields)
	assert.Equal(t, "validation", apperr.Kind(err))
}

func TestParseOrderIntegerRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sum     string
		want    int64
		wantErr string
	}{
		{name: "max int64", sum: "9223372036854775807", want: math.MaxInt64},
		{name: "min int64", sum: "-9223372036854775808", want: math.MinInt64},
		{name: "exponent", sum: "5e3", want: 5000},
		{name: "integral float", sum: "1500.0", want: 1500},
		{name: "two to the 63", sum: "9223372036854775808", wantErr: "must be a 64-bit integer"},
		{name: "below min int64", sum: "-9223372036854775809", wantErr: "must be a 64-bit integer"},
		{name: "float overflow", sum: "1e400", wantErr: "must be a 64-bit integer"},
		{name: "fraction", sum: "0.5", wantErr: "must be an integer"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o, err := ParseOrder([]byte(`{"order_id":"1","service_title":"x","sum_rub":` + tt.sum + `}`))
			if tt.wantErr != "" {
				assert.Equal(t, map[string]string{"sum_rub": tt.wantErr}, fieldsOf(t, err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, o.SumRub)
			assert.Equal(t, tt.want, *o.SumRub)
		})
	}
}

func TestParseOrderRejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `[]`, `null`, `"order"`, `{"order_id":"1"`, `{"order_id":"1","service_title":"x"} {}`} {
		_, err := ParseOrder([]byte(raw))
		fields := fieldsOf(t, err)
		assert.Contains(t, fields, "$", "payload %q", raw)
	}
}

func TestParseOrderOrderIDLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", MaxOrderIDBytes+1)
	_, err := ParseOrder([]byte(`{"order_id":"` + long + `","service_title":"x"}`))
	assert.Contains(t, fieldsOf(t, err), "order_id")

	ok := strings.Repeat("x", MaxOrderIDBytes)
	_, err = ParseOrder([]byte(`{"order_id":"` + ok + `","service_title":"x"}`))
	assert.NoError(t, err)
}

func TestParseOrderTooLong(t *testing.T) {
	t.Parallel()

	details := strings.Repeat("д", MaxRenderedLength)
	_, err := ParseOrder([]byte(`{"order_id":"1","service_title":"x","details":"` + details + `"}`))
	assert.Contains(t, fieldsOf(t, err), "$")
}

func TestIsAbsoluteURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAbsoluteURL("https://yandex.ru/maps"))
	assert.True(t, IsAbsoluteURL("http://avito.ru/item?id=1"))
	assert.False(t, IsAbsoluteURL("yandex.ru/maps"))
	assert.False(t, IsAbsoluteURL("mailto:someone"))
	assert.False(t, IsAbsoluteURL(""))
	assert.False(t, IsAbsoluteURL("https://"))
}
