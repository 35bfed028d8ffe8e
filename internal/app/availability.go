/**
 * @description
 * Best-effort availability checks for usernames and phone numbers, backed by
 * exact-match count probes against the external profile store. The store's
 * own unique constraints remain the final arbiter; a pre-check here only
 * improves feedback while the form is still open.
 *
 * @notes
 * - A probe is only made once the candidate value passes format validation;
 *   malformed input is reported as unchecked.
 * - A transport failure is logged and swallowed: a failed pre-check must
 *   never block typing or submission by itself.
 */
package app

import (
	"context"
	"log"

	"github.com/ndarama/ishuriai-backend/internal/domain"
	"github.com/ndarama/ishuriai-backend/internal/validation"
)

// AvailabilityResult is the outcome of one availability probe. Checked is
// false when no probe was made (bad format) or the probe itself failed;
// Available is only meaningful when Checked is true.
type AvailabilityResult struct {
	Checked   bool `json:"checked"`
	Available bool `json:"available"`
}

// CheckUsername probes the profile store for an exact username match.
func (s *Service) CheckUsername(ctx context.Context, username string) AvailabilityResult {
	if !validation.ValidUsernameFormat(username) {
		return AvailabilityResult{}
	}

	count, err := s.profiles.CountByUsername(ctx, username)
	if err != nil {
		log.Printf("level=warn component=availability msg=\"username probe failed\" err=%v", err)
		return AvailabilityResult{}
	}
	return AvailabilityResult{Checked: true, Available: count == 0}
}

// CheckPhone probes the profile store for an exact match on the carrier's
// phone column.
func (s *Service) CheckPhone(ctx context.Context, number string, carrier domain.Carrier) AvailabilityResult {
	if !carrier.Valid() || !validation.ValidPhone(number, carrier) {
		return AvailabilityResult{}
	}

	count, err := s.profiles.CountByPhone(ctx, carrier, number)
	if err != nil {
		log.Printf("level=warn component=availability msg=\"phone probe failed\" carrier=%s err=%v", carrier, err)
		return AvailabilityResult{}
	}
	return AvailabilityResult{Checked: true, Available: count == 0}
}
