package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Ответы форм при успехе.
const (
	msgContactReceived      = "Your message has been received. We'll get back to you soon!"
	msgNewsletterSubscribed = "Successfully subscribed to newsletter!"
)

// Имена форм для метрик.
const (
	formContact    = "contact"
	formNewsletter = "newsletter"
	formSignup     = "signup"
	formPromo      = "promo"
)

// decodeForm заполняет dst из JSON или из полей HTML-формы.
func decodeForm(r *http.Request, dst any, fromValues func(get func(string) string)) error {
	var err error
	switch formMediaType(r) {
	case "":
		return decodeJSON(r, dst)
	case "multipart/form-data":
		err = r.ParseMultipartForm(maxBodyBytes)
	default:
		err = r.ParseForm()
	}
	if err != nil {
		return &domain.FormError{Message: "The form could not be read"}
	}
	fromValues(r.PostForm.Get)
	return nil
}

func (s *Server) observeForm(form string, accepted bool) {
	if s.observer != nil {
		s.observer.ObserveForm(form, accepted)
	}
}

// publishFormEvent ставит событие формы в outbox. Ошибка только логируется:
// пользователь уже получил подтверждение.
func (s *Server) publishFormEvent(aggregateType, aggregateID, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to encode form event")
		return
	}
	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to enqueue form event")
	}
}

func (s *Server) apiContact(w http.ResponseWriter, r *http.Request) {
	var submission domain.ContactSubmission
	err := decodeForm(r, &submission, func(get func(string) string) {
		submission = domain.ContactSubmission{
			FirstName: get("firstName"),
			LastName:  get("lastName"),
			Email:     get("email"),
			Phone:     get("phone"),
			Subject:   get("subject"),
			Message:   get("message"),
		}
	})
	if err == nil {
		err = submission.Validate()
	}
	if err != nil {
		s.observeForm(formContact, false)
		s.apiFailure(w, r, err)
		return
	}

	submission.SubmittedAt = s.clock()
	s.logger.WithField("subject", submission.Subject).Info("contact form received")
	s.publishFormEvent(domain.AggregateContact, uuid.NewString(), domain.EventContactReceived, submission)
	s.observeForm(formContact, true)

	writeJSON(w, http.StatusOK, apiResponse{"success": true, "message": msgContactReceived})
}

func (s *Server) apiNewsletter(w http.ResponseWriter, r *http.Request) {
	var subscription domain.NewsletterSubscription
	err := decodeForm(r, &subscription, func(get func(string) string) {
		subscription.Email = get("email")
	})
	if err == nil {
		subscription.Email = strings.TrimSpace(subscription.Email)
		err = subscription.Validate()
	}
	if err != nil {
		s.observeForm(formNewsletter, false)
		s.apiFailure(w, r, err)
		return
	}

	subscription.SubscribedAt = s.clock()
	s.publishFormEvent(domain.AggregateNewsletter, strings.ToLower(subscription.Email), domain.EventNewsletterSubscribed, subscription)
	s.observeForm(formNewsletter, true)

	writeJSON(w, http.StatusOK, apiResponse{"success": true, "message": msgNewsletterSubscribed})
}

// apiSignupValidate только проверяет поля: аккаунт не создаётся.
func (s *Server) apiSignupValidate(w http.ResponseWriter, r *http.Request) {
	var form domain.SignupForm
	err := decodeForm(r, &form, func(get func(string) string) {
		form = domain.SignupForm{
			FullName:        get("fullName"),
			Email:           get("email"),
			Password:        get("password"),
			ConfirmPassword: get("confirmPassword"),
		}
	})
	if err != nil {
		s.observeForm(formSignup, false)
		s.apiFailure(w, r, err)
		return
	}

	result := form.Validate()
	s.observeForm(formSignup, result.Valid)

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, apiResponse{
		"success":       result.Valid,
		"valid":         result.Valid,
		"errors":        result.Errors,
		"strength":      result.Strength,
		"strengthLabel": result.StrengthLabel,
	})
}

// apiPromo распознаёт промокод; итоги корзины не меняются.
func (s *Server) apiPromo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeForm(r, &req, func(get func(string) string) { req.Code = get("code") }); err != nil {
		s.apiFailure(w, r, err)
		return
	}

	result := domain.CheckPromo(req.Code)
	s.observeForm(formPromo, result.Accepted)
	writeJSON(w, http.StatusOK, apiResponse{
		"success":  result.Accepted,
		"accepted": result.Accepted,
		"code":     result.Code,
		"message":  result.Message,
	})
}
