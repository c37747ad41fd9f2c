package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/premiumdental/dental-ai-platform/internal/patients"
)

// PatientService is the slice of the patients package the tools call.
type PatientService interface {
	Create(ctx context.Context, req patients.CreateRequest) (*patients.Patient, error)
	GetByID(ctx context.Context, id string) (*patients.Patient, error)
	GetByPhone(ctx context.Context, phone string) (*patients.Patient, error)
}

// RegisterPatientTools adds the patient registration and lookup tools.
func RegisterPatientTools(reg *Registry, svc PatientService) {
	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "create_patient",
			Description: "Register a new patient with the practice. Collect full name, phone number, and date of birth before calling.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"full_name":     {Type: "string", Description: "Patient's full legal name"},
					"phone":         {Type: "string", Description: "Contact phone number"},
					"date_of_birth": {Type: "string", Description: "Date of birth, YYYY-MM-DD"},
					"insurance":     {Type: "string", Description: "Dental insurance provider name, if any"},
				},
				Required: []string{"full_name", "phone", "date_of_birth"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			fullName, err := stringArg(args, "full_name")
			if err != nil {
				return nil, err
			}
			phone, err := stringArg(args, "phone")
			if err != nil {
				return nil, err
			}
			dob, err := timeArg(args, "date_of_birth")
			if err != nil {
				return nil, err
			}
			insurance := optionalStringArg(args, "insurance")

			patient, err := svc.Create(ctx, patients.CreateRequest{
				FullName:      fullName,
				Phone:         phone,
				DateOfBirth:   dob,
				InsuranceName: insurance,
				HasInsurance:  insurance != "",
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"patient_id": patient.ID,
				"full_name":  patient.FullName,
			}, nil
		},
	})

	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "get_patient",
			Description: "Look up an existing patient record by patient ID.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"patient_id": {Type: "string", Description: "Patient identifier, e.g. pat_1a2b3c4d"},
				},
				Required: []string{"patient_id"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id, err := stringArg(args, "patient_id")
			if err != nil {
				return nil, err
			}
			patient, err := svc.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"patient_id":    patient.ID,
				"full_name":     patient.FullName,
				"phone":         patient.Phone,
				"date_of_birth": patient.DateOfBirth.Format("2006-01-02"),
				"has_insurance": patient.HasInsurance,
				"insurance":     patient.InsuranceName,
			}, nil
		},
	})

	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "verify_patient",
			Description: "Verify a returning patient by phone number and date of birth before discussing their records.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"phone":         {Type: "string", Description: "Phone number on file"},
					"date_of_birth": {Type: "string", Description: "Date of birth, YYYY-MM-DD"},
				},
				Required: []string{"phone", "date_of_birth"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			phone, err := stringArg(args, "phone")
			if err != nil {
				return nil, err
			}
			dob, err := timeArg(args, "date_of_birth")
			if err != nil {
				return nil, err
			}

			patient, err := svc.GetByPhone(ctx, phone)
			if errors.Is(err, patients.ErrNotFound) {
				return map[string]any{"verified": false}, nil
			}
			if err != nil {
				return nil, err
			}
			if !sameDate(patient.DateOfBirth, dob) {
				return map[string]any{"verified": false}, nil
			}
			return map[string]any{
				"verified":   true,
				"patient_id": patient.ID,
				"full_name":  patient.FullName,
			}, nil
		},
	})
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
