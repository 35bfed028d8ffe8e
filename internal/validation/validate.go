/**
 * @description
 * Pure, deterministic validation of a registration draft. Validate performs
 * no I/O and collects every field error in a single pass; submission is
 * blocked whenever the resulting set is non-empty.
 *
 * Phone numbers are carrier-specific: MTN Rwanda numbers start with 078/079,
 * Airtel Rwanda numbers with 073/072, in either local (0XXXXXXXXX) or
 * international (+250XXXXXXXXX) form.
 */
package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/ndarama/ishuriai-backend/internal/domain"
)

const (
	minPasswordLen = 6
	minUsernameLen = 3
	minAge         = 5
	maxAge         = 100
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	mtnPhoneRegex    = regexp.MustCompile(`^(\+25078\d{7}|078\d{7}|\+25079\d{7}|079\d{7})$`)
	airtelPhoneRegex = regexp.MustCompile(`^(\+25073\d{7}|073\d{7}|\+25072\d{7}|072\d{7})$`)
)

// nowFunc is swapped in tests that pin the date-of-birth age window.
var nowFunc = time.Now

// ValidEmail reports whether s has a local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ValidUsernameFormat reports whether s is a well-formed username: at least
// three characters, letters/digits/underscore only.
func ValidUsernameFormat(s string) bool {
	return len(s) >= minUsernameLen && usernameRegex.MatchString(s)
}

// ValidPhone reports whether s matches the prefix rule for the given carrier.
// A number shaped like the other carrier's prefix is rejected.
func ValidPhone(s string, carrier domain.Carrier) bool {
	if carrier == domain.CarrierAirtel {
		return airtelPhoneRegex.MatchString(s)
	}
	return mtnPhoneRegex.MatchString(s)
}

// Validate checks every field of the draft and returns the collected field
// errors. An empty set means the draft may be submitted.
func Validate(d domain.RegistrationDraft) domain.FieldErrorSet {
	errs := domain.NewFieldErrorSet()

	if d.Email == "" {
		errs.Set("email", "Email is required")
	} else if !ValidEmail(d.Email) {
		errs.Set("email", "Please enter a valid email address")
	}

	if d.Password == "" {
		errs.Set("password", "Password is required")
	} else if len(d.Password) < minPasswordLen {
		errs.Set("password", "Password must be at least 6 characters")
	}

	if d.ConfirmPassword == "" {
		errs.Set("confirmPassword", "Please confirm your password")
	} else if d.Password != d.ConfirmPassword {
		errs.Set("confirmPassword", "Passwords do not match")
	}

	if strings.TrimSpace(d.FullName) == "" {
		errs.Set("fullName", "Full name is required")
	}

	if strings.TrimSpace(d.Username) == "" {
		errs.Set("username", "Username is required")
	} else if len(d.Username) < minUsernameLen {
		errs.Set("username", "Username must be at least 3 characters")
	} else if !usernameRegex.MatchString(d.Username) {
		errs.Set("username", "Username can only contain letters, numbers, and underscores")
	}

	if d.DateOfBirth == "" {
		errs.Set("dateOfBirth", "Date of birth is required")
	} else if birth, err := time.Parse("2006-01-02", d.DateOfBirth); err != nil {
		errs.Set("dateOfBirth", "Please enter a valid date of birth")
	} else {
		// Calendar-year subtraction, month and day ignored. Kept as-is for
		// parity with the deployed behavior.
		age := nowFunc().Year() - birth.Year()
		if age < minAge || age > maxAge {
			errs.Set("dateOfBirth", "Please enter a valid date of birth")
		}
	}

	if strings.TrimSpace(d.School) == "" {
		errs.Set("school", "School is required")
	}

	if strings.TrimSpace(d.Level) == "" {
		errs.Set("level", "Level is required")
	}

	if d.UserType == "" {
		errs.Set("userType", "Please select your role")
	} else if !d.UserType.Valid() {
		errs.Set("userType", "Invalid user type. Must be Student, Teacher, or Parent")
	}

	mtn := strings.TrimSpace(d.MTNPhone)
	airtel := strings.TrimSpace(d.AirtelPhone)

	if mtn == "" && airtel == "" {
		errs.Set("phoneRequired", "At least one phone number (MTN or AIRTEL) is required")
	}
	if mtn != "" && !mtnPhoneRegex.MatchString(mtn) {
		errs.Set("mtnPhone", "MTN phone must start with 078 or 079 (e.g., 0781234567 or +250781234567)")
	}
	if airtel != "" && !airtelPhoneRegex.MatchString(airtel) {
		errs.Set("airtelPhone", "AIRTEL phone must start with 073 or 072 (e.g., 0731234567 or +250731234567)")
	}

	if !d.AcceptTerms {
		errs.Set("acceptTerms", "You must accept the terms and conditions")
	}

	return errs
}
