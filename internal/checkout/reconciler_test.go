package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPending(t *testing.T, store *memStore, txID, provider string, age time.Duration) {
	t.Helper()
	ref := txID
	_, err := store.Create(context.Background(), &paymentsrepo.Payment{
		TransactionID: txID,
		Provider:      provider,
		ProviderRef:   &ref,
		AmountPaisa:   10000,
		Currency:      "NPR",
		Status:        paymentsrepo.StatusPending,
		Purpose:       paymentsrepo.PurposeDonation,
		CreatedAt:     time.Now().Add(-age),
	})
	require.NoError(t, err)
}

func TestReconcilerSettlesStalePayments(t *testing.T) {
	h := newHarness(Options{})
	h.gw.verify = func(req payments.VerifyRequest) (*payments.VerificationResult, error) {
		switch req.TransactionID {
		case "old-ok":
			return &payments.VerificationResult{Success: true, Terminal: true, State: "COMPLETE", Amount: req.Amount}, nil
		case "old-expired":
			return &payments.VerificationResult{Terminal: true, State: "Expired"}, nil
		case "old-down":
			return nil, errors.New("timeout")
		}
		return &payments.VerificationResult{State: "Pending"}, nil
	}

	seedPending(t, h.store, "old-ok", "esewa", time.Hour)
	seedPending(t, h.store, "old-expired", "khalti", 2*time.Hour)
	seedPending(t, h.store, "old-down", "imepay", 3*time.Hour)
	seedPending(t, h.store, "old-waiting", "connectips", 4*time.Hour)
	seedPending(t, h.store, "fresh", "esewa", time.Minute)

	r := NewReconciler(h.store, h.svc, nil, ReconcilerConfig{MinAge: 15 * time.Minute, Batch: 10}, nil)
	res := r.RunOnce(context.Background())
	h.svc.Wait()

	assert.Equal(t, ReconcileResult{Checked: 4, Completed: 1, Failed: 1, Pending: 2}, res)
	assert.Equal(t, int32(1), h.notifier.calls.Load())

	fresh, err := h.svc.Status(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, paymentsrepo.StatusPending, fresh.Status)
	assert.Equal(t, int32(4), h.gw.verifyCalls.Load())
}

func TestReconcilerRespectsBatch(t *testing.T) {
	h := newHarness(Options{})
	for _, id := range []string{"a", "b", "c"} {
		seedPending(t, h.store, id, "esewa", time.Hour)
	}

	r := NewReconciler(h.store, h.svc, nil, ReconcilerConfig{Batch: 2}, nil)
	res := r.RunOnce(context.Background())
	h.svc.Wait()

	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 2, res.Completed)
}

func TestReconcilerReachesNewerPaymentsBehindStuckOnes(t *testing.T) {
	h := newHarness(Options{})
	h.gw.verify = func(req payments.VerifyRequest) (*payments.VerificationResult, error) {
		if req.TransactionID == "newer" {
			return &payments.VerificationResult{Success: true, Terminal: true, State: "COMPLETE", Amount: req.Amount}, nil
		}
		return &payments.VerificationResult{State: "PENDING"}, nil
	}

	for i := 0; i < 50; i++ {
		seedPending(t, h.store, fmt.Sprintf("stuck-%02d", i), "esewa", 10*time.Hour+time.Duration(i)*time.Minute)
	}
	seedPending(t, h.store, "newer", "esewa", 30*time.Minute)

	r := NewReconciler(h.store, h.svc, nil, ReconcilerConfig{MinAge: 15 * time.Minute, Batch: 50}, nil)

	first := r.RunOnce(context.Background())
	assert.Equal(t, ReconcileResult{Checked: 50, Pending: 50}, first)
	newer, err := h.svc.Status(context.Background(), "newer")
	require.NoError(t, err)
	assert.Equal(t, paymentsrepo.StatusPending, newer.Status)
	assert.Nil(t, newer.LastCheckedAt)

	second := r.RunOnce(context.Background())
	h.svc.Wait()
	assert.Equal(t, 1, second.Completed)

	newer, err = h.svc.Status(context.Background(), "newer")
	require.NoError(t, err)
	assert.Equal(t, paymentsrepo.StatusCompleted, newer.Status)
	require.NotNil(t, newer.LastCheckedAt)
}

func TestReconcilerExpiresPaymentsPastMaxAge(t *testing.T) {
	h := newHarness(Options{})
	h.gw.verify = func(req payments.VerifyRequest) (*payments.VerificationResult, error) {
		if req.TransactionID == "ancient-down" {
			return nil, errors.New("connection refused")
		}
		return &payments.VerificationResult{State: "PENDING"}, nil
	}

	seedPending(t, h.store, "ancient", "esewa", 100*time.Hour)
	seedPending(t, h.store, "ancient-down", "khalti", 100*time.Hour)
	seedPending(t, h.store, "recent", "esewa", time.Hour)

	r := NewReconciler(h.store, h.svc, nil, ReconcilerConfig{MinAge: 15 * time.Minute, MaxAge: 72 * time.Hour}, nil)
	res := r.RunOnce(context.Background())
	h.svc.Wait()

	assert.Equal(t, ReconcileResult{Checked: 3, Pending: 2, Expired: 1}, res)

	ancient, err := h.svc.Status(context.Background(), "ancient")
	require.NoError(t, err)
	assert.Equal(t, paymentsrepo.StatusFailed, ancient.Status)
	require.NotNil(t, ancient.FailureReason)
	assert.Equal(t, ReasonExpired, *ancient.FailureReason)

	down, err := h.svc.Status(context.Background(), "ancient-down")
	require.NoError(t, err)
	assert.Equal(t, paymentsrepo.StatusPending, down.Status)
	assert.Equal(t, int32(0), h.notifier.calls.Load())
}

type stubPruner struct{ calls int }

func (s *stubPruner) PruneStaleTokens(context.Context, time.Duration) error {
	s.calls++
	return nil
}

func TestReconcilerStartRejectsBadSchedule(t *testing.T) {
	h := newHarness(Options{})
	r := NewReconciler(h.store, h.svc, &stubPruner{}, ReconcilerConfig{Schedule: "every now and then"}, nil)
	require.Error(t, r.Start())
}

func TestReconcilerStartStop(t *testing.T) {
	h := newHarness(Options{})
	r := NewReconciler(h.store, h.svc, &stubPruner{}, ReconcilerConfig{Schedule: "@every 1h"}, nil)
	require.NoError(t, r.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
