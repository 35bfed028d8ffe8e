package app

import (
	"context"
	"errors"
	"testing"

	"github.com/ndarama/ishuriai-backend/internal/domain"
)

func TestCheckUsername(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		count         int
		countErr      error
		wantChecked   bool
		wantAvailable bool
	}{
		{"free", "eric_n", 0, nil, true, true},
		{"taken", "eric_n", 1, nil, true, false},
		{"too short", "ab", 0, nil, false, false},
		{"bad characters", "eric-n!", 0, nil, false, false},
		{"empty", "", 0, nil, false, false},
		{"transport failure swallowed", "eric_n", 0, errors.New("store down"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfileStore{usernameCount: tt.count, usernameErr: tt.countErr}
			svc := NewService(&fakeIdentityStore{}, profiles, nil, "")

			got := svc.CheckUsername(context.Background(), tt.username)
			if got.Checked != tt.wantChecked || got.Available != tt.wantAvailable {
				t.Errorf("CheckUsername(%q) = %+v, want checked=%v available=%v",
					tt.username, got, tt.wantChecked, tt.wantAvailable)
			}
		})
	}
}

func TestCheckPhone(t *testing.T) {
	tests := []struct {
		name          string
		number        string
		carrier       domain.Carrier
		count         int
		countErr      error
		wantChecked   bool
		wantAvailable bool
	}{
		{"mtn free", "0781234567", domain.CarrierMTN, 0, nil, true, true},
		{"mtn taken", "0791234567", domain.CarrierMTN, 1, nil, true, false},
		{"mtn international form", "+250781234567", domain.CarrierMTN, 0, nil, true, true},
		{"airtel free", "0731234567", domain.CarrierAirtel, 0, nil, true, true},
		{"wrong prefix for carrier", "0781234567", domain.CarrierAirtel, 0, nil, false, false},
		{"malformed", "078123", domain.CarrierMTN, 0, nil, false, false},
		{"transport failure swallowed", "0781234567", domain.CarrierMTN, 0, errors.New("store down"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfileStore{phoneCount: tt.count, phoneErr: tt.countErr}
			svc := NewService(&fakeIdentityStore{}, profiles, nil, "")

			got := svc.CheckPhone(context.Background(), tt.number, tt.carrier)
			if got.Checked != tt.wantChecked || got.Available != tt.wantAvailable {
				t.Errorf("CheckPhone(%q, %s) = %+v, want checked=%v available=%v",
					tt.number, tt.carrier, got, tt.wantChecked, tt.wantAvailable)
			}
		})
	}
}
