package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// MessageLink строит ссылку на сообщение в супергруппе или канале (ID вида -100...).
// Для личных чатов и обычных групп Telegram таких ссылок не дает.
func MessageLink(chatID int64, messageID int) (string, bool) {
	id := strconv.FormatInt(chatID, 10)
	if !strings.HasPrefix(id, "-100") || len(id) <= 4 || messageID <= 0 {
		return "", false
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, "-100"), messageID), true
}

// QRCode кодирует ссылку в PNG 256x256.
// qrcode.Medium - уровень коррекции ошибок.
func QRCode(link string) ([]byte, error) {
	if link == "" {
		return nil, fmt.Errorf("пустая ссылка для QR-кода")
	}
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования QR-кода для ссылки '%s': %w", link, err)
	}
	return png, nil
}
