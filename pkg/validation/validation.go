package validation

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	seatRegex  = regexp.MustCompile(`^[A-Za-z0-9]{1,8}$`)
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// Errors collects field errors for a single request.
type Errors []FieldError

// Check records msg against field when ok is false.
func (e *Errors) Check(ok bool, field, msg string) {
	if !ok {
		*e = append(*e, FieldError{Field: field, Msg: msg})
	}
}

// Empty reports whether no field was rejected.
func (e Errors) Empty() bool { return len(e) == 0 }

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePhone accepts international mobile numbers; spaces, dashes and
// parentheses used as separators are ignored.
func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" || len(phone) > 50 {
		return false
	}
	stripped := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	return phoneRegex.MatchString(stripped)
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

func ValidateSeatLabel(label string) bool {
	return seatRegex.MatchString(label)
}

// ValidateSeats requires at least one well-formed label and no repeats.
func ValidateSeats(seats []string) (ok bool, msg string) {
	if len(seats) == 0 {
		return false, "at least one seat is required"
	}
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if !ValidateSeatLabel(s) {
			return false, "invalid seat label " + s
		}
		if _, dup := seen[s]; dup {
			return false, "seat " + s + " requested twice"
		}
		seen[s] = struct{}{}
	}
	return true, ""
}

// ValidateDate accepts an empty value or a calendar date in YYYY-MM-DD form.
func ValidateDate(date string) bool {
	if date == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func ValidateRating(r int) bool { return r >= 1 && r <= 5 }

// ValidateSubRating accepts 0 (not rated) through 5.
func ValidateSubRating(r int) bool { return r >= 0 && r <= 5 }
