package telegram_api

import (
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"orderrelay/internal/apperr"
)

// SendHTML отправляет сообщение в HTML-разметке, при необходимости с клавиатурой.
func SendHTML(s Sender, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	sent, err := s.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, apperr.Transport("sendMessage", err)
	}
	return sent, nil
}

// SendText отправляет служебное сообщение без разметки.
func SendText(s Sender, chatID int64, text string) error {
	if _, err := s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return apperr.Transport("sendMessage", err)
	}
	return nil
}

// EditHTML заменяет текст сообщения. reply_markup не передается, поэтому
// инлайн-клавиатура удаляется тем же запросом.
func EditHTML(s Sender, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := s.Request(edit)
	if err == nil || strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return apperr.Transport("editMessageText", err)
}

// AnswerCallback отвечает на нажатие кнопки. alert - показать окно вместо всплывающей подсказки.
func AnswerCallback(s Sender, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := s.Request(cb); err != nil {
		return apperr.Transport("answerCallbackQuery", err)
	}
	return nil
}

// SendDocument отправляет файл из памяти.
func SendDocument(s Sender, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := s.Send(doc); err != nil {
		return apperr.Transport("sendDocument", err)
	}
	return nil
}

// SendPhoto отправляет изображение из памяти.
func SendPhoto(s Sender, chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if _, err := s.Send(photo); err != nil {
		return apperr.Transport("sendPhoto", err)
	}
	return nil
}

// ClaimKeyboard - клавиатура из одной кнопки.
func ClaimKeyboard(text, data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, data),
		),
	)
}

// SendOrder публикует текст заказа с кнопкой взятия.
func SendOrder(s Sender, chatID int64, text, buttonText, buttonData string) (tgbotapi.Message, error) {
	kb := ClaimKeyboard(buttonText, buttonData)
	return SendHTML(s, chatID, text, &kb)
}
