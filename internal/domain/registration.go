/**
 * @description
 * This file defines the domain models for the registration flow: the
 * registration draft a user fills in, the enums constraining it, and the
 * field-scoped error set used to report validation problems back per field.
 *
 * @notes
 * - The draft is a fixed, typed record rather than a loose field map; the
 *   user type is an explicit enum so an unknown role can never reach the
 *   identity store.
 * - A draft is transient: it exists only while a form is open and carries
 *   the plaintext password, so it must never be persisted or logged.
 */
package domain

// UserType is the role a registrant selects.
type UserType string

const (
	UserTypeStudent UserType = "Student"
	UserTypeTeacher UserType = "Teacher"
	UserTypeParent  UserType = "Parent"
)

// Valid reports whether the user type is one of the three supported roles.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeTeacher, UserTypeParent:
		return true
	}
	return false
}

// Carrier identifies the mobile network operator a phone number belongs to.
// The carrier determines which prefix rule applies during validation and
// which column is probed for uniqueness.
type Carrier string

const (
	CarrierMTN    Carrier = "mtn"
	CarrierAirtel Carrier = "airtel"
)

// Valid reports whether the carrier is one of the two supported operators.
func (c Carrier) Valid() bool {
	return c == CarrierMTN || c == CarrierAirtel
}

// PhoneColumn returns the profile column holding numbers for this carrier.
func (c Carrier) PhoneColumn() string {
	if c == CarrierAirtel {
		return "airtel_phone"
	}
	return "mtn_phone"
}

// RegistrationDraft holds everything a user enters on the registration form.
// At least one of MTNPhone / AirtelPhone must be non-empty.
type RegistrationDraft struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`

	FullName    string   `json:"full_name"`
	Username    string   `json:"username"`
	DateOfBirth string   `json:"date_of_birth"` // YYYY-MM-DD
	School      string   `json:"school"`
	Level       string   `json:"level"`
	UserType    UserType `json:"user_type"`
	MTNPhone    string   `json:"mtn_phone"`
	AirtelPhone string   `json:"airtel_phone"`
	AcceptTerms bool     `json:"accept_terms"`
}

// Metadata returns the profile fields the draft contributes as sign-up
// metadata, so a profile can still be built later if the immediate insert
// never happens (e.g. email confirmation is pending).
func (d RegistrationDraft) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"full_name":     d.FullName,
		"username":      d.Username,
		"date_of_birth": d.DateOfBirth,
		"school":        d.School,
		"level":         d.Level,
		"user_type":     string(d.UserType),
		"mtn_phone":     d.MTNPhone,
		"airtel_phone":  d.AirtelPhone,
		"accept_terms":  d.AcceptTerms,
	}
}

// FieldErrorSet maps a form field name to its error message. A field absent
// from the set is valid. The zero value is not usable; call NewFieldErrorSet.
type FieldErrorSet map[string]string

// NewFieldErrorSet returns an empty, ready-to-use error set.
func NewFieldErrorSet() FieldErrorSet {
	return make(FieldErrorSet)
}

// Set records an error message for a field.
func (f FieldErrorSet) Set(field, message string) {
	f[field] = message
}

// Clear removes any error recorded for a field.
func (f FieldErrorSet) Clear(field string) {
	delete(f, field)
}

// Has reports whether the field currently has an error.
func (f FieldErrorSet) Has(field string) bool {
	return f[field] != ""
}

// Empty reports whether no field has an error.
func (f FieldErrorSet) Empty() bool {
	for _, msg := range f {
		if msg != "" {
			return false
		}
	}
	return true
}
