package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var patientColumns = []string{
	"id", "full_name", "phone", "date_of_birth", "insurance_name", "has_insurance", "family_members", "created_at",
}

func TestPostgresCreateReturnsStoredRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	dob := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	insurance := "Delta Dental"

	mock.ExpectQuery("INSERT INTO patients").
		WillReturnRows(pgxmock.NewRows(patientColumns).
			AddRow("pat_abc12345", "John Doe", "+1 (555) 010-0000", dob, &insurance, true, []string{}, created))

	repo := NewPostgresRepositoryWithDB(mock)
	patient, err := repo.Create(context.Background(), &Patient{
		FullName:      "John Doe",
		Phone:         "+1 (555) 010-0000",
		DateOfBirth:   dob,
		InsuranceName: insurance,
		HasInsurance:  true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if patient.ID != "pat_abc12345" {
		t.Errorf("id = %q", patient.ID)
	}
	if patient.InsuranceName != insurance {
		t.Errorf("insurance = %q", patient.InsuranceName)
	}
}

func TestPostgresGetByPhoneUsesNormalizedDigits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	dob := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM patients WHERE phone_digits").
		WithArgs("15550100000").
		WillReturnRows(pgxmock.NewRows(patientColumns).
			AddRow("pat_abc12345", "John Doe", "+1 (555) 010-0000", dob, nil, false, []string{}, created))

	repo := NewPostgresRepositoryWithDB(mock)
	patient, err := repo.GetByPhone(context.Background(), "+1 (555) 010-0000")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if patient.ID != "pat_abc12345" {
		t.Errorf("id = %q", patient.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM patients WHERE id").
		WithArgs("pat_missing1").
		WillReturnRows(pgxmock.NewRows(patientColumns))

	repo := NewPostgresRepositoryWithDB(mock)
	if _, err := repo.GetByID(context.Background(), "pat_missing1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
