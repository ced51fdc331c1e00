package domain

import (
	"regexp"
	"strings"
	"time"
)

// Сообщения валидации форм витрины.
const (
	MsgContactRequired   = "All required fields must be filled"
	MsgNewsletterInvalid = "Valid email is required"
	MsgNameInvalid       = "Please enter your full name"
	MsgEmailInvalid      = "Please enter a valid email address"
	MsgPasswordShort     = "Password must be at least 8 characters"
	MsgPasswordMismatch  = "Passwords do not match"
	MsgPromoEmpty        = "Please enter a promo code"
	MsgPromoInvalid      = "Invalid promo code"
	MsgPromoApplied      = "10% discount applied!"
)

// PromoCode — единственный распознаваемый промокод.
const PromoCode = "INDIAKART10"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactSubmission — сообщение из формы обратной связи.
type ContactSubmission struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Validate проверяет обязательные поля. Телефон необязателен.
func (c ContactSubmission) Validate() error {
	for _, field := range []string{c.FirstName, c.LastName, c.Email, c.Subject, c.Message} {
		if strings.TrimSpace(field) == "" {
			return &FormError{Message: MsgContactRequired}
		}
	}
	return nil
}

// NewsletterSubscription — подписка на рассылку.
type NewsletterSubscription struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// Validate требует наличие символа '@' в адресе.
func (n NewsletterSubscription) Validate() error {
	if !strings.Contains(n.Email, "@") {
		return &FormError{Message: MsgNewsletterInvalid}
	}
	return nil
}

// FormError — ошибка валидации формы с текстом для пользователя.
type FormError struct {
	Message string
	Fields  map[string]string
}

func (e *FormError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять FormError через errors.Is(err, ErrInvalidArgument).
func (e *FormError) Unwrap() error {
	return ErrInvalidArgument
}

// SignupForm — поля формы регистрации. Аккаунт не создаётся.
type SignupForm struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SignupValidation — результат проверки формы регистрации.
type SignupValidation struct {
	Valid         bool              `json:"valid"`
	Errors        map[string]string `json:"errors,omitempty"`
	Strength      int               `json:"strength"`
	StrengthLabel string            `json:"strengthLabel"`
}

// Validate проверяет каждое поле независимо и считает силу пароля.
func (f SignupForm) Validate() SignupValidation {
	errs := make(map[string]string)

	if name := strings.TrimSpace(f.FullName); len([]rune(name)) < 2 {
		errs["fullName"] = MsgNameInvalid
	}
	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		errs["email"] = MsgEmailInvalid
	}
	if len([]rune(f.Password)) < 8 {
		errs["password"] = MsgPasswordShort
	}
	if f.ConfirmPassword != f.Password {
		errs["confirmPassword"] = MsgPasswordMismatch
	}

	strength := PasswordStrength(f.Password)
	result := SignupValidation{
		Valid:         len(errs) == 0,
		Strength:      strength,
		StrengthLabel: StrengthLabel(strength),
	}
	if len(errs) > 0 {
		result.Errors = errs
	}
	return result
}

// PasswordStrength возвращает оценку 0..4: длина от 8, заглавная буква,
// цифра, символ вне [A-Za-z0-9].
func PasswordStrength(password string) int {
	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			symbol = true
		}
	}

	score := 0
	if len([]rune(password)) >= 8 {
		score++
	}
	for _, ok := range []bool{upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return score
}

var strengthLabels = [...]string{"", "Weak", "Fair", "Good", "Strong"}

// StrengthLabel возвращает подпись для оценки пароля.
func StrengthLabel(score int) string {
	if score < 0 || score >= len(strengthLabels) {
		return ""
	}
	return strengthLabels[score]
}

// PromoResult — результат проверки промокода.
type PromoResult struct {
	Code     string `json:"code"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// CheckPromo распознаёт промокод. Итоги корзины не меняются.
func CheckPromo(raw string) PromoResult {
	code := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case code == "":
		return PromoResult{Message: MsgPromoEmpty}
	case code == PromoCode:
		return PromoResult{Code: code, Accepted: true, Message: MsgPromoApplied}
	default:
		return PromoResult{Code: code, Message: MsgPromoInvalid}
	}
}
