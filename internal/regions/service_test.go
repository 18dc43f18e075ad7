package regions

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{RegionRepo: repo, Logger: logg})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRegionRequest{Name: "   "}); err == nil {
		t.Fatal("expected validation error for blank name")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceCreateDuplicateConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRegionRequest{Name: "lubelskie"}); err != nil {
		t.Fatalf("create region: %v", err)
	}
	_, err := svc.Create(ctx, CreateRegionRequest{Name: "lubelskie"})
	if err == nil {
		t.Fatal("expected conflict for duplicate name")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceGetNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, uuid.New())
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceUpdateRenames(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRegionRequest{Name: "mazowieckie"})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, CreateRegionRequest{Name: "pomorskie"})
	if err != nil {
		t.Fatalf("update region: %v", err)
	}
	if updated.Name != "pomorskie" {
		t.Fatalf("expected renamed region, got %q", updated.Name)
	}

	_, err = svc.Update(ctx, uuid.New(), CreateRegionRequest{Name: "anything"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceDeleteRefusesNonEmptyRegion(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRegionRequest{Name: "opolskie"})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	seedPlace(t, repo.db, created.ID)

	err = svc.Delete(ctx, created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
		t.Fatalf("unexpected error: %v", err)
	}

	empty, err := svc.Create(ctx, CreateRegionRequest{Name: "lodzkie"})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if err := svc.Delete(ctx, empty.ID); err != nil {
		t.Fatalf("delete empty region: %v", err)
	}
	if _, err := svc.Get(ctx, empty.ID); err == nil {
		t.Fatal("expected region to be gone")
	}
}

func TestServiceReconcileReportsCorrections(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRegionRequest{Name: "podlaskie"})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}

	region, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload region: %v", err)
	}
	seedPlace(t, repo.db, region.ID)

	corrected, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if corrected != 1 {
		t.Fatalf("expected 1 correction, got %d", corrected)
	}

	// Second pass is a no-op.
	corrected, err = svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if corrected != 0 {
		t.Fatalf("expected no corrections, got %d", corrected)
	}
}
