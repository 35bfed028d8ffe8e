/**
 * @description
 * Row API operations against the user_profile table and the
 * user_subscription_details view: profile reads and writes, the joined
 * profile+subscription fetch, and the exact-match count probes backing the
 * username/phone availability checks.
 */
package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ndarama/ishuriai-backend/internal/domain"
)

const (
	profileTable     = "user_profile"
	subscriptionView = "user_subscription_details"
)

type wireProfile struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	FullName    string          `json:"full_name"`
	Username    string          `json:"username"`
	DateOfBirth string          `json:"date_of_birth"`
	School      string          `json:"school"`
	Level       string          `json:"level"`
	UserType    domain.UserType `json:"user_type"`
	Email       string          `json:"email"`
	MTNPhone    *string         `json:"mtn_phone"`
	AirtelPhone *string         `json:"airtel_phone"`
	AcceptTerms bool            `json:"accept_terms"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p wireProfile) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		ID:          p.ID,
		UserID:      p.UserID,
		FullName:    p.FullName,
		Username:    p.Username,
		DateOfBirth: p.DateOfBirth,
		School:      p.School,
		Level:       p.Level,
		UserType:    p.UserType,
		Email:       p.Email,
		MTNPhone:    p.MTNPhone,
		AirtelPhone: p.AirtelPhone,
		AcceptTerms: p.AcceptTerms,
		PlanTier:    domain.PlanFree,
		CreatedAt:   p.CreatedAt,
	}
}

// wireSubscriptionDetails is one row of the joined view: the profile columns
// plus the subscription columns, all of the latter nullable for free-tier
// profiles.
type wireSubscriptionDetails struct {
	wireProfile
	Plan               *domain.PlanTier `json:"plan"`
	SubscriptionStatus *string          `json:"subscription_status"`
	CurrentPeriodStart *time.Time       `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time       `json:"current_period_end"`
	AutoRenew          *bool            `json:"auto_renew"`
}

func (w wireSubscriptionDetails) subscription() *domain.Subscription {
	if w.Plan == nil || w.SubscriptionStatus == nil {
		return nil
	}
	sub := &domain.Subscription{
		UserID: w.UserID,
		Plan:   *w.Plan,
		Status: *w.SubscriptionStatus,
	}
	if w.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = *w.CurrentPeriodStart
	}
	if w.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *w.CurrentPeriodEnd
	}
	if w.AutoRenew != nil {
		sub.AutoRenew = *w.AutoRenew
	}
	return sub
}

func eq(value string) string {
	return "eq." + value
}

// ProfileByUserID fetches the profile row for an identity. ErrNotFound is
// returned when no row exists yet.
func (c *Client) ProfileByUserID(ctx context.Context, accessToken, userID string) (*domain.UserProfile, error) {
	query := url.Values{
		"select":  []string{"*"},
		"user_id": []string{eq(userID)},
	}

	var rows []wireProfile
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+profileTable, query, accessToken, nil, &rows, nil); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// ProfileWithSubscription fetches the joined profile+subscription view for
// an identity. The subscription is nil for free-tier profiles. ErrNotFound
// is returned when the view has no row for the identity.
func (c *Client) ProfileWithSubscription(ctx context.Context, accessToken, userID string) (*domain.UserProfile, *domain.Subscription, error) {
	query := url.Values{
		"select":  []string{"*"},
		"user_id": []string{eq(userID)},
	}

	var rows []wireSubscriptionDetails
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+subscriptionView, query, accessToken, nil, &rows, nil); err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrNotFound
	}

	profile := rows[0].toDomain()
	sub := rows[0].subscription()
	if sub != nil {
		profile.PlanTier = sub.Plan
	}
	return profile, sub, nil
}

// SubscriptionByUserID fetches the subscription for an identity. A nil
// subscription with a nil error means the identity is on the free plan.
func (c *Client) SubscriptionByUserID(ctx context.Context, accessToken, userID string) (*domain.Subscription, error) {
	query := url.Values{
		"select":  []string{"*"},
		"user_id": []string{eq(userID)},
	}

	var rows []wireSubscriptionDetails
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+subscriptionView, query, accessToken, nil, &rows, nil); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].subscription(), nil
}

// InsertProfile writes a new profile row and returns it. ErrConflict is
// returned when the username or a phone number is already taken; the store's
// unique constraints are the final arbiter regardless of earlier checks.
func (c *Client) InsertProfile(ctx context.Context, accessToken string, p domain.NewProfile) (*domain.UserProfile, error) {
	headers := map[string]string{"Prefer": "return=representation"}

	var rows []wireProfile
	if err := c.do(ctx, http.MethodPost, "/rest/v1/"+profileTable, nil, accessToken, []domain.NewProfile{p}, &rows, headers); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// UpdateProfile patches the profile row for an identity and returns the
// updated row. Callers must strip immutable fields before building the patch.
func (c *Client) UpdateProfile(ctx context.Context, accessToken, userID string, patch map[string]interface{}) (*domain.UserProfile, error) {
	query := url.Values{"user_id": []string{eq(userID)}}
	headers := map[string]string{"Prefer": "return=representation"}

	var rows []wireProfile
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/"+profileTable, query, accessToken, patch, &rows, headers); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// CountByUsername counts profile rows holding exactly this username.
func (c *Client) CountByUsername(ctx context.Context, username string) (int, error) {
	query := url.Values{
		"select":   []string{"username"},
		"username": []string{eq(username)},
	}

	var rows []struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+profileTable, query, "", nil, &rows, nil); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CountByPhone counts profile rows holding exactly this number in the
// carrier's column.
func (c *Client) CountByPhone(ctx context.Context, carrier domain.Carrier, number string) (int, error) {
	column := carrier.PhoneColumn()
	query := url.Values{
		"select": []string{column},
		column:   []string{eq(number)},
	}

	var rows []map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+profileTable, query, "", nil, &rows, nil); err != nil {
		return 0, err
	}
	return len(rows), nil
}
