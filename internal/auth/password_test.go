package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid complex", "MyP@ssw0rd123!", true},
		{"valid seed password", "Admin123!", true},
		{"valid minimal", "Abcde12!", true},

		{"too short", "Ab1!", false},
		{"exactly 7", "Abcd12!", false},
		{"no uppercase", "abcdefgh123!", false},
		{"no lowercase", "ABCDEFGH123!", false},
		{"no digit", "Abcdefghijk!", false},
		{"no special", "Abcdefgh1234", false},

		{"empty", "", false},
		{"spaces only", "            ", false},
		{"unicode", "Abcdefgh123!é", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if got := err == nil; got != tc.wantOK {
				t.Errorf("ValidatePassword(%q) error=%v, want valid=%v", tc.password, err, tc.wantOK)
			}
		})
	}
}

func TestValidatePassword_Messages(t *testing.T) {
	tests := []struct {
		password    string
		wantContain string
	}{
		{"short", "at least 8"},
		{"abcdefgh123!", "uppercase"},
		{"ABCDEFGH123!", "lowercase"},
		{"Abcdefghijk!", "digit"},
		{"Abcdefgh1234", "special"},
	}

	for _, tc := range tests {
		t.Run(tc.wantContain, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			var validErr *PasswordValidationError
			if !errors.As(err, &validErr) {
				t.Fatalf("expected PasswordValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantContain) {
				t.Errorf("error %q should contain %q", err.Error(), tc.wantContain)
			}
		})
	}
}
