package patients

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ErrNotFound indicates the patient does not exist.
var ErrNotFound = errors.New("patients: patient not found")

// Patient is a registered patient of the practice.
type Patient struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	InsuranceName string    `json:"insurance_name,omitempty"`
	HasInsurance  bool      `json:"has_insurance"`
	FamilyMembers []string  `json:"family_members,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Age returns the patient's age in whole years as of now.
func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Validate checks the fields required to register a patient.
func (p *Patient) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return errors.New("patients: full name is required")
	}
	if _, err := NormalizePhone(p.Phone); err != nil {
		return err
	}
	if p.DateOfBirth.IsZero() {
		return errors.New("patients: date of birth is required")
	}
	return nil
}

// NormalizePhone strips formatting and requires at least 10 digits. The
// digits-only form is what repositories index on so that "+1 (555) 010-0000"
// and "15550100000" resolve to the same patient.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < 10 {
		return "", fmt.Errorf("patients: phone number must contain at least 10 digits, got %q", phone)
	}
	return digits.String(), nil
}
