// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

var phonePattern = regexp.MustCompile(`^09\d{8}$`)

const minPasswordLength = 8

// IsValidEmail проверяет, что логин участника является адресом электронной почты.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// IsValidPassword проверяет пароль: не короче 8 символов, только латинские буквы и цифры,
// минимум одна буква и одна цифра.
func IsValidPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}

	hasLetter, hasDigit := false, false
	for _, ch := range password {
		switch {
		case ch > unicode.MaxASCII:
			return false
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		default:
			return false
		}
	}

	return hasLetter && hasDigit
}

// IsValidPhone проверяет номер мобильного телефона формата 09XXXXXXXX.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ParseDate разбирает календарную дату формата yyyy-MM-dd в полночь UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}
