package formatters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"orderrelay/internal/models"
)

// Подписи блоков сообщения о заказе.
const (
	labelContract       = "Договор:"
	labelDate           = "Дата:"
	labelTime           = "Время:"
	labelAddress        = "Адрес:"
	labelClientPresence = "Присутствие клиента:"
	labelAdLink         = "Ссылка на объявление"
	labelAdLinks        = "Ссылки на объявления"
	labelMaps           = "Яндекс карты"
	labelNavigator      = "Яндекс навигатор"
	labelMetro          = "До метро:"
	labelSum            = "Сумма заказа:"
	labelToPay          = "К оплате:"
	labelDetails        = "Подробности:"
	labelDistanceZone   = "Удалённость:"

	// FallbackClaimantName подставляется вместо пустого имени пользователя.
	FallbackClaimantName = "специалист"
)

// RenderOrder собирает текст сообщения о заказе в HTML-разметке Telegram.
// Функция чистая: для одинаковых заказов результат побайтно совпадает.
// Поля заказа не экранируются - это доверенный ввод оператора.
func RenderOrder(o models.Order) string {
	lines := []string{
		fmt.Sprintf("<b>‼ %s ‼</b>", o.ServiceTitle),
		o.City,
	}

	lines = appendLabeled(lines, labelContract, o.Contract)
	lines = appendLabeled(lines, labelDate, o.Date)
	lines = appendLabeled(lines, labelTime, o.Time)
	lines = appendLabeled(lines, labelAddress, o.Address)
	lines = appendLabeled(lines, labelClientPresence, o.ClientPresence)

	if len(o.AdLinks) > 0 {
		header := labelAdLink
		if len(o.AdLinks) > 1 {
			header = labelAdLinks
		}
		lines = append(lines, "", bold(header))
		lines = append(lines, o.AdLinks...)
	}

	hasMaps, hasNavigator := present(o.MapsLink), present(o.NavigatorLink)
	if hasMaps || hasNavigator {
		lines = append(lines, "")
		if hasMaps {
			lines = append(lines, labelMaps)
		}
		if hasNavigator {
			lines = append(lines, labelNavigator)
		}
	}

	if len(o.Metro) > 0 {
		lines = append(lines, "", bold(labelMetro))
		for _, m := range o.Metro {
			lines = append(lines, fmt.Sprintf("%s: %s км.", m.Name, FormatDistance(m.DistanceKm)))
		}
	}

	if o.SumRub != nil {
		lines = append(lines, bold(labelSum)+" "+strconv.FormatInt(*o.SumRub, 10))
	}
	if o.ToPayRub != nil {
		lines = append(lines, bold(labelToPay)+" "+strconv.FormatInt(*o.ToPayRub, 10))
	}

	if present(o.Details) {
		lines = append(lines, "", bold(labelDetails), *o.Details)
	}
	if present(o.DistanceZoneNote) {
		lines = append(lines, bold(labelDistanceZone), *o.DistanceZoneNote)
	}

	return strings.Join(lines, "\n")
}

// FormatDistance округляет расстояние до двух знаков и отбрасывает хвостовые нули:
// 1.50 -> "1.5", 2.0 -> "2", 2.666 -> "2.67".
// Округляется двоичное значение float64, поэтому 2.675 дает "2.67".
func FormatDistance(km float64) string {
	fixed := strconv.FormatFloat(km, 'f', 2, 64)
	d, err := decimal.NewFromString(fixed)
	if err != nil {
		// NaN и Inf
		return fixed
	}
	return d.String()
}

// MentionHTML строит ссылку-упоминание пользователя.
// Из имени удаляются угловые скобки, пустое имя заменяется на FallbackClaimantName.
func MentionHTML(userID int64, name string) string {
	safe := strings.NewReplacer("<", "", ">", "").Replace(name)
	if strings.TrimSpace(safe) == "" {
		safe = FallbackClaimantName
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, safe)
}

func appendLabeled(lines []string, label string, value *string) []string {
	if !present(value) {
		return lines
	}
	return append(lines, bold(label)+" "+*value)
}

func bold(s string) string {
	return "<b>" + s + "</b>"
}

func present(s *string) bool {
	return s != nil && *s != ""
}
