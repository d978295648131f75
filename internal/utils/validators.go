package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"orderrelay/internal/apperr"
	"orderrelay/internal/formatters"
	"orderrelay/internal/models"
)

const (
	// MaxOrderIDBytes - "take:" + order_id должен уложиться в 64 байта callback_data.
	MaxOrderIDBytes = 59
	// MaxRenderedLength оставляет запас под отметку "Забрал:" в лимите Telegram 4096 символов.
	MaxRenderedLength = 3968

	rootPath = "$"
)

var orderValidate = newOrderValidator()

func newOrderValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("abs_url", isAbsoluteURL); err != nil {
		panic(err)
	}
	return v
}

// isAbsoluteURL требует схему и хост, как у ссылок из объявлений и Яндекс карт.
func isAbsoluteURL(fl validator.FieldLevel) bool {
	return IsAbsoluteURL(fl.Field().String())
}

// IsAbsoluteURL проверяет, что строка - абсолютный URL со схемой и хостом.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// ParseOrder разбирает JSON-заказ из команды /postjson или HTTP API.
// Все ошибки собираются в один *apperr.ValidationError; при ошибке заказ не возвращается.
// Неизвестные ключи игнорируются.
func ParseOrder(raw []byte) (models.Order, error) {
	verr := &apperr.ValidationError{}

	data, err := decodeObject(raw)
	if err != nil {
		verr.Add(rootPath, err.Error())
		return models.Order{}, verr
	}

	o := models.Order{City: models.DefaultCity}
	for _, rule := range orderRules {
		rule(data, &o, verr)
	}

	validateStruct(o, verr)
	if !verr.Empty() {
		return models.Order{}, verr
	}

	if n := utf8.RuneCountInString(formatters.RenderOrder(o)); n > MaxRenderedLength {
		verr.Add(rootPath, fmt.Sprintf("rendered message is too long: %d > %d characters", n, MaxRenderedLength))
		return models.Order{}, verr
	}
	return o, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %v", err)
	}
	if data == nil {
		return nil, errors.New("expected a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return data, nil
}

type fieldRule func(data map[string]any, o *models.Order, verr *apperr.ValidationError)

// orderRules выполняются строго по порядку, по одному правилу на поле.
var orderRules = []fieldRule{
	ruleOrderID,
	ruleServiceTitle,
	ruleText("city", func(o *models.Order, v string) { o.City = v }),
	ruleOptionalText("contract", func(o *models.Order, v *string) { o.Contract = v }),
	ruleOptionalText("date", func(o *models.Order, v *string) { o.Date = v }),
	ruleOptionalText("time", func(o *models.Order, v *string) { o.Time = v }),
	ruleOptionalText("address", func(o *models.Order, v *string) { o.Address = v }),
	ruleOptionalText("client_presence", func(o *models.Order, v *string) { o.ClientPresence = v }),
	ruleAdLinks,
	ruleOptionalURL("maps_link", func(o *models.Order, v *string) { o.MapsLink = v }),
	ruleOptionalURL("navigator_link", func(o *models.Order, v *string) { o.NavigatorLink = v }),
	ruleOptionalInt("sum_rub", nil, func(o *models.Order, v *int64) { o.SumRub = v }),
	ruleOptionalInt("to_pay_rub", int64Ptr(0), func(o *models.Order, v *int64) { o.ToPayRub = v }),
	ruleMetro,
	ruleOptionalText("details", func(o *models.Order, v *string) { o.Details = v }),
	ruleOptionalText("distance_zone_note", func(o *models.Order, v *string) { o.DistanceZoneNote = v }),
}

func ruleOrderID(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
	raw, ok := data["order_id"]
	if !ok || raw == nil {
		verr.Add("order_id", "field required")
		return
	}
	switch v := raw.(type) {
	case string:
		o.OrderID = v
	case json.Number:
		o.OrderID = v.String()
	default:
		verr.Add("order_id", "must be a string")
		return
	}
	if len(o.OrderID) > MaxOrderIDBytes {
		verr.Add("order_id", fmt.Sprintf("must be at most %d bytes", MaxOrderIDBytes))
	}
}

func ruleServiceTitle(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
	raw, ok := data["service_title"]
	if !ok || raw == nil {
		verr.Add("service_title", "service_title must be non-empty")
		return
	}
	s, ok := raw.(string)
	if !ok {
		verr.Add("service_title", "must be a string")
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		verr.Add("service_title", "service_title must be non-empty")
		return
	}
	o.ServiceTitle = s
}

func ruleText(field string, set func(*models.Order, string)) fieldRule {
	return func(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
		if s, ok := readString(data, field, field, verr); ok && s != nil {
			set(o, *s)
		}
	}
}

func ruleOptionalText(field string, set func(*models.Order, *string)) fieldRule {
	return func(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
		if s, ok := readString(data, field, field, verr); ok {
			set(o, s)
		}
	}
}

// ruleOptionalURL отличается от ruleOptionalText тем, что пустая строка не считается отсутствием ссылки.
func ruleOptionalURL(field string, set func(*models.Order, *string)) fieldRule {
	return func(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
		s, ok := readString(data, field, field, verr)
		if !ok {
			return
		}
		if s != nil && *s == "" {
			verr.Add(field, "must be an absolute URL with scheme and host")
			return
		}
		set(o, s)
	}
}

func ruleOptionalInt(field string, def *int64, set func(*models.Order, *int64)) fieldRule {
	return func(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
		raw, ok := data[field]
		if !ok || raw == nil {
			set(o, def)
			return
		}
		v, err := toInt64(raw)
		if err != nil {
			verr.Add(field, err.Error())
			return
		}
		set(o, &v)
	}
}

func ruleAdLinks(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
	items, ok := readArray(data, "ad_links", verr)
	if !ok {
		return
	}
	links := make([]string, 0, len(items))
	for i, item := range items {
		s, isStr := item.(string)
		if !isStr {
			verr.Add(fmt.Sprintf("ad_links[%d]", i), "must be a string")
		}
		links = append(links, s)
	}
	o.AdLinks = links
}

func ruleMetro(data map[string]any, o *models.Order, verr *apperr.ValidationError) {
	items, ok := readArray(data, "metro", verr)
	if !ok {
		return
	}
	// Невалидные элементы тоже добавляются, чтобы индексы в путях ошибок validator совпадали с входными.
	points := make([]models.MetroPoint, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("metro[%d]", i)
		var p models.MetroPoint
		obj, isObj := item.(map[string]any)
		if !isObj {
			verr.Add(path, "must be an object")
			points = append(points, p)
			continue
		}

		if s, ok := readString(obj, "name", path+".name", verr); ok {
			if s == nil {
				verr.Add(path+".name", "field required")
			} else {
				p.Name = *s
			}
		}

		if raw, exists := obj["distance_km"]; !exists || raw == nil {
			verr.Add(path+".distance_km", "field required")
		} else if km, err := toFloat64(raw); err != nil {
			verr.Add(path+".distance_km", err.Error())
		} else {
			p.DistanceKm = km
		}

		points = append(points, p)
	}
	o.Metro = points
}

// readString возвращает (nil, true) для отсутствующего поля или null и (_, false) при ошибке типа.
func readString(data map[string]any, field, path string, verr *apperr.ValidationError) (*string, bool) {
	raw, ok := data[field]
	if !ok || raw == nil {
		return nil, true
	}
	s, ok := raw.(string)
	if !ok {
		verr.Add(path, "must be a string")
		return nil, false
	}
	return &s, true
}

func readArray(data map[string]any, field string, verr *apperr.ValidationError) ([]any, bool) {
	raw, ok := data[field]
	if !ok || raw == nil {
		return nil, true
	}
	items, ok := raw.([]any)
	if !ok {
		verr.Add(field, "must be an array")
		return nil, false
	}
	return items, true
}

// toInt64 принимает целые JSON-числа, в том числе записанные как 5000.0 или 5e3.
// Значения вне диапазона int64 отклоняются, а не обрезаются.
func toInt64(raw any) (int64, error) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, errors.New("must be an integer")
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || math.Abs(f) > 1<<63 {
		return 0, errors.New("must be a 64-bit integer")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() {
		return 0, errors.New("must be an integer")
	}
	if bi := d.BigInt(); bi.IsInt64() {
		return bi.Int64(), nil
	}
	return 0, errors.New("must be a 64-bit integer")
}

func toFloat64(raw any) (float64, error) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, errors.New("must be a number")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, errors.New("must be a number")
	}
	return f, nil
}

// validateStruct переводит ошибки validator в пути JSON. Поля, уже отклоненные
// при разборе типов, повторно не сообщаются.
func validateStruct(o models.Order, verr *apperr.ValidationError) {
	err := orderValidate.Struct(o)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		verr.Add(rootPath, err.Error())
		return
	}

	reported := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		reported = append(reported, f.Field)
	}
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Order.")
		if coveredBy(path, reported) {
			continue
		}
		verr.Add(path, reasonFor(fe))
	}
}

// coveredBy сообщает, что путь или один из его родителей уже отклонен.
func coveredBy(path string, reported []string) bool {
	for _, r := range reported {
		if path == r || strings.HasPrefix(path, r+".") || strings.HasPrefix(path, r+"[") {
			return true
		}
	}
	return false
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be non-empty"
	case "abs_url":
		return "must be an absolute URL with scheme and host"
	case "gte":
		return "must be non-negative"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func int64Ptr(v int64) *int64 { return &v }
