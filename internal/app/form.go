/**
 * @description
 * A Form owns the mutable state of one open registration form: the draft,
 * the per-field error set, and the flow state. Blur events trigger
 * background availability probes whose results mutate the error set without
 * changing the flow state; Submit runs validation and, when clean, hands the
 * draft to the registration service.
 *
 * @notes
 * - Concurrent probes on the same field are not cancelled or coalesced; the
 *   last response to resolve overwrites the field's error entry.
 * - A closed form drops late probe results instead of writing to state
 *   nobody is reading anymore.
 */
package app

import (
	"context"
	"sync"

	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/internal/validation"
)

// Form is the state container for one open registration form. All methods
// are safe for concurrent use.
type Form struct {
	svc *Service

	mu     sync.Mutex
	draft  domain.RegistrationDraft
	errors domain.FieldErrorSet
	state  FlowState
	closed bool
}

// NewForm opens a form with empty defaults.
func NewForm(svc *Service) *Form {
	return &Form{
		svc:    svc,
		errors: domain.NewFieldErrorSet(),
		state:  StateEditing,
	}
}

// SetDraft replaces the whole draft, as when a field-by-field UI flushes its
// latest values before a blur check or submit.
func (f *Form) SetDraft(d domain.RegistrationDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = d
}

// Draft returns the current draft.
func (f *Form) Draft() domain.RegistrationDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// State returns the current flow state.
func (f *Form) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() domain.FieldErrorSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := domain.NewFieldErrorSet()
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// ClearFieldError drops the error for a field, as when the user resumes
// typing into it.
func (f *Form) ClearFieldError(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors.Clear(field)
}

// Close marks the form as torn down. Late async results are dropped from
// this point on, and the draft is wiped.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.draft = domain.RegistrationDraft{}
}

// BlurUsername runs the availability probe for the current username. Called
// when the username field loses focus.
func (f *Form) BlurUsername(ctx context.Context) {
	f.mu.Lock()
	username := f.draft.Username
	f.mu.Unlock()
	if username == "" {
		return
	}

	result := f.svc.CheckUsername(ctx, username)
	f.applyAvailability("username", result, "Username is already taken")
}

// BlurPhone runs the availability probe for the carrier's phone field.
func (f *Form) BlurPhone(ctx context.Context, carrier domain.Carrier) {
	f.mu.Lock()
	number := f.draft.MTNPhone
	field := "mtnPhone"
	taken := "This MTN phone number is already registered"
	if carrier == domain.CarrierAirtel {
		number = f.draft.AirtelPhone
		field = "airtelPhone"
		taken = "This AIRTEL phone number is already registered"
	}
	f.mu.Unlock()
	if number == "" {
		return
	}

	result := f.svc.CheckPhone(ctx, number, carrier)
	f.applyAvailability(field, result, taken)
}

// applyAvailability writes a probe result into the error set. An unchecked
// result (bad format or transport failure) leaves the field error untouched.
func (f *Form) applyAvailability(field string, result AvailabilityResult, takenMessage string) {
	if !result.Checked {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if result.Available {
		f.errors.Clear(field)
	} else {
		f.errors.Set(field, takenMessage)
	}
}

// Submit validates the draft and, when clean, submits it through the
// registration service. On validation failure the form returns to Editing
// with its error set replaced; on success the draft is destroyed.
func (f *Form) Submit(ctx context.Context) SubmitResult {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return SubmitResult{State: StateEditing}
	}
	f.state = StateValidating
	draft := f.draft
	f.mu.Unlock()

	if errs := validation.Validate(draft); !errs.Empty() {
		f.mu.Lock()
		f.errors = errs
		f.state = StateEditing
		f.mu.Unlock()
		return SubmitResult{State: StateEditing, FieldErrors: errs}
	}

	f.mu.Lock()
	f.state = StateSubmitting
	f.mu.Unlock()

	result := f.svc.Submit(ctx, draft)

	f.mu.Lock()
	f.state = result.State
	if result.State == StateSucceeded {
		f.draft = domain.RegistrationDraft{}
	} else if result.State == StateFailed {
		// Draft retained for correction and resubmission.
		f.state = StateEditing
	}
	f.mu.Unlock()
	return result
}
