package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	// SessionCookieName хранит идентификатор клиентской сессии (UUID).
	SessionCookieName = "indiakart_session"
	flashCookieName   = "indiakart_flash"
)

// sessionID возвращает сессию запроса, создавая новую при отсутствии или
// порче cookie.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	// Последующие чтения в рамках запроса видят ту же сессию.
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	return id
}

// setFlash сохраняет уведомление до следующей страницы (PRG).
func setFlash(w http.ResponseWriter, message string) {
	if message == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash читает и удаляет уведомление.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})

	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}
