package journal

import (
	"context"
	"testing"

	"github.com/rahulmehra/storefront-backend/pkg/config"
	"github.com/rahulmehra/storefront-backend/pkg/db"
	"github.com/rahulmehra/storefront-backend/pkg/db/models"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file::memory:",
	}, nil)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(&models.CheckoutAttempt{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo, err := NewRepository(client)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func TestCreateAndUpdateAttempt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{
		SessionID:       "sess-1",
		Path:            enums.PaymentPathCard,
		State:           enums.CheckoutStateIntentRequested,
		CartFingerprint: "fp-1",
		TotalPrice:      "268",
	}
	if err := repo.Create(ctx, attempt); err != nil {
		t.Fatalf("Create: %v", err)
	}

	chargeID := "ch_1"
	attempt.State = enums.CheckoutStatePaymentSucceeded
	attempt.ChargeID = &chargeID
	if err := repo.Update(ctx, attempt); err != nil {
		t.Fatalf("Update: %v", err)
	}

	found, err := repo.FindBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FindBySession: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d attempts, want 1", len(found))
	}
	if found[0].State != enums.CheckoutStatePaymentSucceeded {
		t.Fatalf("state = %s, want payment_succeeded", found[0].State)
	}
	if found[0].ChargeID == nil || *found[0].ChargeID != "ch_1" {
		t.Fatalf("charge id = %v, want ch_1", found[0].ChargeID)
	}
}

func TestFindUnreconciledOnlyReturnsChargedAttempts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	chargeID := "ch_9"
	stranded := &models.CheckoutAttempt{
		SessionID:       "sess-1",
		Path:            enums.PaymentPathCard,
		State:           enums.CheckoutStateOrderCreationFailed,
		CartFingerprint: "fp-1",
		ChargeID:        &chargeID,
		TotalPrice:      "100",
	}
	settled := &models.CheckoutAttempt{
		SessionID:       "sess-2",
		Path:            enums.PaymentPathCOD,
		State:           enums.CheckoutStateOrderCreated,
		CartFingerprint: "fp-2",
		TotalPrice:      "50",
	}
	for _, attempt := range []*models.CheckoutAttempt{stranded, settled} {
		if err := repo.Create(ctx, attempt); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	found, err := repo.FindUnreconciled(ctx)
	if err != nil {
		t.Fatalf("FindUnreconciled: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d attempts, want 1", len(found))
	}
	if found[0].ChargeID == nil || *found[0].ChargeID != "ch_9" {
		t.Fatalf("charge id = %v, want ch_9", found[0].ChargeID)
	}
}
