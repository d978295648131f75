package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"orderrelay/internal/apperr"
	"orderrelay/internal/models"
	"orderrelay/internal/reports"
	"orderrelay/internal/telegram_api"
	"orderrelay/internal/utils"
)

const (
	maxOrderBodyBytes = 64 << 10
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// jsonResponse - стандартный ответ API.
type jsonResponse struct {
	Status  string              `json:"status"` // "success" или "error"
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// PublishedOrder - ответ на успешную публикацию.
type PublishedOrder struct {
	PublicationID string `json:"publication_id"`
	OrderID       string `json:"order_id"`
	ChatID        int64  `json:"chat_id"`
	MessageID     int    `json:"message_id"`
	Link          string `json:"link,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, resp jsonResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, jsonResponse{Status: "success", Message: message, Data: data})
}

// writeAppError переводит ошибку приложения в HTTP-ответ.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	resp := jsonResponse{Status: "error", Message: err.Error()}

	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Message = "заказ не прошел проверку"
		resp.Errors = verr.Fields
	case status >= http.StatusInternalServerError:
		s.log.Error("Ошибка обработки запроса", zap.String("kind", apperr.Kind(err)), zap.Error(err))
		resp.Message = http.StatusText(status)
	}
	writeJSON(w, status, resp)
}

// Health - проверка живости для балансировщика.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, http.StatusOK, "ok", nil)
}

// CreateOrder публикует JSON-заказ в TARGET_CHAT_ID.
func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxOrderBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "тело запроса слишком большое")
		return
	}

	pub, err := s.deps.Publisher.PlanJSON(user.ID, 0, body)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	sent, err := telegram_api.SendOrder(s.deps.Bot, pub.ChatID, pub.Text, pub.Button.Text, pub.Button.Data)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.log.Info("Заказ опубликован через API",
		zap.String("order_id", pub.OrderID),
		zap.String("publication_id", pub.ID),
		zap.Int64("chat_id", pub.ChatID),
		zap.Int("message_id", sent.MessageID),
		zap.Int64("user_id", user.ID))

	link, _ := utils.MessageLink(pub.ChatID, sent.MessageID)
	writeJSONSuccess(w, http.StatusCreated, "заказ опубликован", PublishedOrder{
		PublicationID: pub.ID,
		OrderID:       pub.OrderID,
		ChatID:        pub.ChatID,
		MessageID:     sent.MessageID,
		Link:          link,
	})
}

// ListClaims отдает журнал взятых заказов.
func (s *Server) ListClaims(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Guard.Records(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if records == nil {
		records = []models.ClaimRecord{}
	}
	writeJSONSuccess(w, http.StatusOK, "", records)
}

// ExportClaims отдает журнал файлом XLSX.
func (s *Server) ExportClaims(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Guard.Records(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	data, err := reports.ClaimsWorkbook(records)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	name := fmt.Sprintf("claims_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("Ошибка записи выгрузки", zap.Error(err))
	}
}
