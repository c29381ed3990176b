// Package validation wraps go-playground/validator with the storefront's
// custom tags and turns failures into shoperr validation errors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/internal/shoperr"
)

var (
	zipPattern    = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)
	expiryPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

const minCardDigits = 13

var messages = map[string]string{
	"required":   "is required",
	"email":      "must be a valid email address",
	"zip":        "must be a 5 or 9 digit ZIP code",
	"cardnumber": "must contain at least 13 digits",
	"expiry":     "must be in MM/YY format",
	"notexpired": "has expired",
	"cvv":        "must be 3 or 4 digits",
}

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New builds a validator. now is consulted for card expiry checks.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return lowerCamel(fld.Name)
		}
		return name
	})

	mustRegister(v.validate, "zip", func(fl validator.FieldLevel) bool {
		return zipPattern.MatchString(fl.Field().String())
	})
	mustRegister(v.validate, "cardnumber", func(fl validator.FieldLevel) bool {
		digits := StripSpaces(fl.Field().String())
		return len(digits) >= minCardDigits && digitsPattern.MatchString(digits)
	})
	mustRegister(v.validate, "expiry", func(fl validator.FieldLevel) bool {
		_, _, ok := ParseExpiry(fl.Field().String())
		return ok
	})
	mustRegister(v.validate, "notexpired", func(fl validator.FieldLevel) bool {
		month, year, ok := ParseExpiry(fl.Field().String())
		if !ok {
			// reported by the expiry tag
			return true
		}
		return !Expired(month, year, v.now())
	})
	mustRegister(v.validate, "cvv", func(fl validator.FieldLevel) bool {
		cvv := fl.Field().String()
		return (len(cvv) == 3 || len(cvv) == 4) && digitsPattern.MatchString(cvv)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Struct validates s and returns a shoperr validation error carrying one
// message per failing field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shoperr.NewFieldError("body", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		fields[field] = msg
	}
	return shoperr.NewValidation(fields)
}

var std = New(time.Now)

// Struct validates s against the wall clock.
func Struct(s any) error {
	return std.Struct(s)
}

// ParseExpiry parses MM/YY into a month and a four-digit year.
func ParseExpiry(raw string) (month, year int, ok bool) {
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return month, 2000 + yy, true
}

// Expired reports whether the card month lies before the month of now.
func Expired(month, year int, now time.Time) bool {
	nowYear, nowMonth := now.Year(), int(now.Month())
	return year < nowYear || (year == nowYear && month < nowMonth)
}

// StripSpaces removes all whitespace from s.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
