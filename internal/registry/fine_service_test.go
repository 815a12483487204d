package registry

import (
	"context"
	"testing"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

func newTestFineService(fines *mockFineRepo, vehicles *mockVehicleRepo) *FineService {
	s := NewFineService(fines, vehicles, trimSanitizer{})
	s.now = fixedClock
	return s
}

func vehicleRepoWithVehicle() *mockVehicleRepo {
	return &mockVehicleRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Vehicle, error) {
			if id == testVehicleID {
				return &model.Vehicle{ID: id, Plate: "ABCD12"}, nil
			}
			return nil, nil
		},
		findByPlateFn: func(ctx context.Context, plate string) (*model.Vehicle, error) {
			if plate == "ABCD12" {
				return &model.Vehicle{ID: testVehicleID, Plate: plate}, nil
			}
			return nil, nil
		},
	}
}

func storedFine() *model.Fine {
	return &model.Fine{
		ID:        testFineID,
		VehicleID: testVehicleID,
		Reason:    "Exceso de velocidad",
		Place:     "Ruta 68",
		Amount:    52000,
		IssuedAt:  fixedTime.Add(-24 * time.Hour),
	}
}

// --- テスト ---

func TestFineService_Add_Success(t *testing.T) {
	var created *model.Fine
	fines := &mockFineRepo{
		createFn: func(ctx context.Context, f *model.Fine) error {
			created = f
			return nil
		},
	}
	svc := newTestFineService(fines, vehicleRepoWithVehicle())

	f, err := svc.Add(context.Background(), FineInput{
		Plate:  "abcd12",
		Reason: "Exceso de velocidad",
		Amount: int64Ptr(52000),
		Place:  "Ruta 68",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created != f {
		t.Fatal("returned fine should be the stored one")
	}
	if f.VehicleID != testVehicleID {
		t.Errorf("VehicleID = %q, want %q", f.VehicleID, testVehicleID)
	}
	if f.Paid {
		t.Error("new fine should not be paid")
	}
	if f.Description != "" {
		t.Errorf("Description = %q, want empty", f.Description)
	}
	if !f.IssuedAt.Equal(fixedTime) {
		t.Errorf("IssuedAt = %v, want %v", f.IssuedAt, fixedTime)
	}
}

func TestFineService_Add_ZeroAmountAllowed(t *testing.T) {
	svc := newTestFineService(&mockFineRepo{}, vehicleRepoWithVehicle())

	_, err := svc.Add(context.Background(), FineInput{
		Plate: "ABCD12", Reason: "Amonestación", Amount: int64Ptr(0), Place: "Centro",
	})
	if err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}
}

func TestFineService_Add_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		in   FineInput
	}{
		{"パテンテなし", FineInput{Reason: "x", Amount: int64Ptr(1), Place: "y"}},
		{"理由なし", FineInput{Plate: "ABCD12", Amount: int64Ptr(1), Place: "y"}},
		{"金額なし", FineInput{Plate: "ABCD12", Reason: "x", Place: "y"}},
		{"場所なし", FineInput{Plate: "ABCD12", Reason: "x", Amount: int64Ptr(1)}},
		{"負の金額", FineInput{Plate: "ABCD12", Reason: "x", Amount: int64Ptr(-1), Place: "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestFineService(&mockFineRepo{}, vehicleRepoWithVehicle())
			_, err := svc.Add(context.Background(), tt.in)
			if code := apiErrorCode(err); code != model.ErrCodeValidation {
				t.Errorf("error code = %q, want %q (err=%v)", code, model.ErrCodeValidation, err)
			}
		})
	}
}

func TestFineService_Add_UnknownPlate(t *testing.T) {
	svc := newTestFineService(&mockFineRepo{}, vehicleRepoWithVehicle())

	_, err := svc.Add(context.Background(), FineInput{
		Plate: "ZZZZ99", Reason: "x", Amount: int64Ptr(1), Place: "y",
	})
	if code := apiErrorCode(err); code != model.ErrCodeVehicleNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeVehicleNotFound)
	}
}

func TestFineService_ListByVehicle_UnknownVehicle(t *testing.T) {
	svc := newTestFineService(&mockFineRepo{}, vehicleRepoWithVehicle())

	_, err := svc.ListByVehicle(context.Background(), testPersonaID)
	if code := apiErrorCode(err); code != model.ErrCodeVehicleNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeVehicleNotFound)
	}
}

func TestFineService_Update_PartialFields(t *testing.T) {
	var updated *model.Fine
	fines := &mockFineRepo{
		findByIDFn: func(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
			return storedFine(), nil
		},
		updateFn: func(ctx context.Context, f *model.Fine) error {
			updated = f
			return nil
		},
	}
	svc := newTestFineService(fines, vehicleRepoWithVehicle())

	f, err := svc.Update(context.Background(), testVehicleID, testFineID, FinePatch{
		Amount: int64Ptr(60000),
		Paid:   boolPtr(true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("Update was not called")
	}
	if f.Amount != 60000 || !f.Paid {
		t.Errorf("updated fields = %d/%v", f.Amount, f.Paid)
	}
	if f.Reason != "Exceso de velocidad" || f.Place != "Ruta 68" {
		t.Errorf("untouched fields changed: %+v", f)
	}
}

func TestFineService_Update_Rejects(t *testing.T) {
	zero := time.Time{}
	tests := []struct {
		name     string
		fineID   string
		patch    FinePatch
		wantCode string
	}{
		{"負の金額", testFineID, FinePatch{Amount: int64Ptr(-5)}, model.ErrCodeValidation},
		{"空の理由", testFineID, FinePatch{Reason: strPtr(" ")}, model.ErrCodeValidation},
		{"ゼロ日時", testFineID, FinePatch{IssuedAt: &zero}, model.ErrCodeValidation},
		{"不正な罰金ID", "nope", FinePatch{}, model.ErrCodeInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fines := &mockFineRepo{
				findByIDFn: func(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
					return storedFine(), nil
				},
			}
			svc := newTestFineService(fines, vehicleRepoWithVehicle())

			_, err := svc.Update(context.Background(), testVehicleID, tt.fineID, tt.patch)
			if code := apiErrorCode(err); code != tt.wantCode {
				t.Errorf("error code = %q, want %q (err=%v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestFineService_MarkPaid(t *testing.T) {
	fines := &mockFineRepo{
		findByIDFn: func(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
			return storedFine(), nil
		},
	}
	svc := newTestFineService(fines, vehicleRepoWithVehicle())

	f, err := svc.MarkPaid(context.Background(), testVehicleID, testFineID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Paid {
		t.Error("fine should be paid")
	}
}

func TestFineService_FineNotFound(t *testing.T) {
	svc := newTestFineService(&mockFineRepo{}, vehicleRepoWithVehicle())

	_, err := svc.MarkPaid(context.Background(), testVehicleID, testFineID)
	if code := apiErrorCode(err); code != model.ErrCodeFineNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeFineNotFound)
	}
}

func TestFineService_Delete(t *testing.T) {
	t.Run("削除成功", func(t *testing.T) {
		var gotVehicle, gotFine string
		fines := &mockFineRepo{
			deleteFn: func(ctx context.Context, vehicleID, fineID string) (bool, error) {
				gotVehicle, gotFine = vehicleID, fineID
				return true, nil
			},
		}
		svc := newTestFineService(fines, vehicleRepoWithVehicle())
		if err := svc.Delete(context.Background(), testVehicleID, testFineID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotVehicle != testVehicleID || gotFine != testFineID {
			t.Errorf("Delete called with %q/%q", gotVehicle, gotFine)
		}
	})

	t.Run("存在しない", func(t *testing.T) {
		fines := &mockFineRepo{
			deleteFn: func(ctx context.Context, vehicleID, fineID string) (bool, error) { return false, nil },
		}
		svc := newTestFineService(fines, vehicleRepoWithVehicle())
		err := svc.Delete(context.Background(), testVehicleID, testFineID)
		if code := apiErrorCode(err); code != model.ErrCodeFineNotFound {
			t.Errorf("error code = %q, want %q", code, model.ErrCodeFineNotFound)
		}
	})
}
