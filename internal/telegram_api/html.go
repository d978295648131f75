package telegram_api

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// HTMLFromEntities восстанавливает HTML-разметку сообщения по его тексту и entities.
// Telegram присылает текст без тегов, а смещения entities считаются в UTF-16.
// Отметка о взятии дописывается к этой разметке, иначе редактирование потеряет форматирование.
func HTMLFromEntities(text string, entities []tgbotapi.MessageEntity) string {
	units := utf16.Encode([]rune(text))
	sorted := make([]tgbotapi.MessageEntity, 0, len(entities))
	for _, e := range entities {
		if e.Length <= 0 || e.Offset < 0 || e.Offset >= len(units) {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Length > sorted[j].Length
	})
	return unparse(units, sorted, 0, len(units))
}

func unparse(units []uint16, entities []tgbotapi.MessageEntity, start, end int) string {
	var b strings.Builder
	pos := start
	for i := 0; i < len(entities); i++ {
		e := entities[i]
		if e.Offset < pos {
			continue
		}
		if e.Offset > pos {
			b.WriteString(escapeUnits(units[pos:e.Offset]))
		}
		entityEnd := min(e.Offset+e.Length, end)

		// Вложенные entities начинаются внутри текущей.
		j := i + 1
		for j < len(entities) && entities[j].Offset < entityEnd {
			j++
		}
		b.WriteString(wrapEntity(e, unparse(units, entities[i+1:j], e.Offset, entityEnd)))

		pos = entityEnd
		i = j - 1
	}
	if pos < end {
		b.WriteString(escapeUnits(units[pos:end]))
	}
	return b.String()
}

func escapeUnits(units []uint16) string {
	return textEscaper.Replace(string(utf16.Decode(units)))
}

func wrapEntity(e tgbotapi.MessageEntity, inner string) string {
	switch e.Type {
	case "bold":
		return "<b>" + inner + "</b>"
	case "italic":
		return "<i>" + inner + "</i>"
	case "underline":
		return "<u>" + inner + "</u>"
	case "strikethrough":
		return "<s>" + inner + "</s>"
	case "spoiler":
		return "<tg-spoiler>" + inner + "</tg-spoiler>"
	case "code":
		return "<code>" + inner + "</code>"
	case "pre":
		if e.Language != "" {
			return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, attrEscaper.Replace(e.Language), inner)
		}
		return "<pre>" + inner + "</pre>"
	case "text_link":
		return fmt.Sprintf(`<a href="%s">%s</a>`, attrEscaper.Replace(e.URL), inner)
	case "text_mention":
		if e.User == nil {
			return inner
		}
		return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, e.User.ID, inner)
	case "blockquote":
		return "<blockquote>" + inner + "</blockquote>"
	case "expandable_blockquote":
		return "<blockquote expandable>" + inner + "</blockquote>"
	case "custom_emoji":
		return fmt.Sprintf(`<tg-emoji emoji-id="%s">%s</tg-emoji>`, attrEscaper.Replace(e.CustomEmojiID), inner)
	default:
		// url, mention, hashtag и т.п. Telegram распознает сам.
		return inner
	}
}
