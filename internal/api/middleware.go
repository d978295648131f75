package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderrelay/internal/apperr"
	"orderrelay/internal/config"
)

// initDataMaxAge - срок годности подписи WebApp.
const initDataMaxAge = 24 * time.Hour

// UserContextKey - ключ для сохранения данных пользователя в контексте запроса.
var UserContextKey = &contextKey{"User"}

type contextKey struct {
	name string
}

// WebAppUser - пользователь из поля user в initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// UserFromContext возвращает пользователя, проверенного AuthMiddleware.
func UserFromContext(ctx context.Context) (WebAppUser, bool) {
	user, ok := ctx.Value(UserContextKey).(WebAppUser)
	return user, ok
}

// AuthMiddleware проверяет заголовок X-Telegram-Auth с initData.
func AuthMiddleware(secretKey string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("X-Telegram-Auth")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "отсутствует заголовок X-Telegram-Auth")
				return
			}

			user, err := validateInitData(authHeader, secretKey, time.Now())
			if err != nil {
				log.Info("Некорректный initData", zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, "некорректный initData")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AllowListMiddleware пропускает только пользователей из ADMIN_IDS.
func AllowListMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !cfg.IsAdmin(user.ID) {
				writeJSONError(w, apperr.HTTPStatus(apperr.ErrUnauthorized), apperr.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validateInitData проверяет подпись данных Telegram WebApp и возвращает пользователя.
func validateInitData(initData, botToken string, now time.Time) (WebAppUser, error) {
	var user WebAppUser

	q, err := url.ParseQuery(initData)
	if err != nil {
		return user, fmt.Errorf("failed to parse initData: %w", err)
	}

	hash := q.Get("hash")
	if hash == "" {
		return user, errors.New("hash is not present in initData")
	}

	pairs := make([]string, 0, len(q))
	for k, v := range q {
		if k != "hash" {
			pairs = append(pairs, k+"="+v[0])
		}
	}
	sort.Strings(pairs)

	expected := signInitData(strings.Join(pairs, "\n"), botToken)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return user, errors.New("initData signature mismatch")
	}

	authDate, err := strconv.ParseInt(q.Get("auth_date"), 10, 64)
	if err != nil {
		return user, fmt.Errorf("invalid auth_date: %w", err)
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return user, errors.New("initData expired")
	}

	userJSON := q.Get("user")
	if userJSON == "" {
		return user, errors.New("user data is not present in initData")
	}
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return user, fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	return user, nil
}

// signInitData считает hash по data-check-string: HMAC-SHA256 с ключом HMAC("WebAppData", token).
func signInitData(dataCheckString, botToken string) string {
	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString))
	return hex.EncodeToString(h.Sum(nil))
}
