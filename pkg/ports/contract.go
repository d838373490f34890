package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractEpoch = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func contractLead(id, phone string, minutes int) *domain.Lead {
	return &domain.Lead{
		ID:           id,
		ContactName:  "Dana Reyes",
		BusinessName: "Green Valley Landscaping",
		Phone:        phone,
		Email:        "dana@example.com",
		City:         "Springfield",
		State:        "IL",
		Rating:       4.5,
		ReviewCount:  37,
		Status:       domain.StatusNew,
		Score:        domain.ScoreWarm,
		Notes:        "imported",
		Source:       "contract",
		CreatedAt:    contractEpoch.Add(time.Duration(minutes) * time.Minute),
	}
}

// RunLeadStoreContract runs a suite of tests to verify that a LeadStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunLeadStoreContract(t *testing.T, store LeadStore) {
	ctx := context.Background()

	t.Run("Save and Get", func(t *testing.T) {
		lead := contractLead("LEAD-20260302-AAAA0001", "+15550000001", 0)
		lead.LastContacted = contractEpoch.Add(time.Hour)

		require.NoError(t, store.Save(ctx, lead), "Save should not return error")

		loaded, err := store.Get(ctx, lead.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, lead, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "LEAD-MISSING")
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		lead := contractLead("LEAD-20260302-AAAA0002", "+15550000002", 1)
		require.NoError(t, store.Save(ctx, lead))

		lead.Status = domain.StatusInterested
		lead.Notes += "\ncalled back"
		require.NoError(t, store.Save(ctx, lead))

		loaded, err := store.Get(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInterested, loaded.Status)
		assert.Equal(t, "imported\ncalled back", loaded.Notes)
	})

	t.Run("Loaded Leads Are Copies", func(t *testing.T) {
		loaded, err := store.Get(ctx, "LEAD-20260302-AAAA0002")
		require.NoError(t, err)
		loaded.Notes = "mutated"

		again, err := store.Get(ctx, "LEAD-20260302-AAAA0002")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Notes)
	})

	t.Run("FindByPhone", func(t *testing.T) {
		older := contractLead("LEAD-20260302-AAAA0003", "+15551234567", 2)
		newer := contractLead("LEAD-20260302-AAAA0004", "+15551234567", 3)
		require.NoError(t, store.Save(ctx, newer))
		require.NoError(t, store.Save(ctx, older))

		found, err := store.FindByPhone(ctx, "(555) 123-4567")
		require.NoError(t, err)
		assert.Equal(t, older.ID, found.ID, "the oldest lead wins")

		_, err = store.FindByPhone(ctx, "+15559999999")
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})

	t.Run("SaveBatch and List", func(t *testing.T) {
		batch := []*domain.Lead{
			contractLead("LEAD-20260302-BBBB0002", "+15550000012", 12),
			contractLead("LEAD-20260302-BBBB0001", "+15550000011", 11),
		}
		require.NoError(t, store.SaveBatch(ctx, batch))
		require.NoError(t, store.SaveBatch(ctx, nil), "an empty batch is a no-op")

		leads, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, leads, 6)

		ids := make([]string, len(leads))
		for i, l := range leads {
			ids[i] = l.ID
			if i > 0 {
				assert.False(t, l.CreatedAt.Before(leads[i-1].CreatedAt), "List is ordered oldest first")
			}
		}
		assert.Equal(t, "LEAD-20260302-BBBB0001", ids[4])
		assert.Equal(t, "LEAD-20260302-BBBB0002", ids[5])
	})

	t.Run("Delete", func(t *testing.T) {
		id := "LEAD-20260302-AAAA0001"
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrLeadNotFound, "Get after Delete should return ErrLeadNotFound")
		_, err = store.FindByPhone(ctx, "+15550000001")
		assert.ErrorIs(t, err, domain.ErrLeadNotFound, "the phone index forgets deleted leads")

		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})
}

// RunDeploymentLedgerContract verifies a DeploymentLedger implementation.
// The ledger must start empty.
func RunDeploymentLedgerContract(t *testing.T, ledger DeploymentLedger) {
	ctx := context.Background()
	first := domain.Deployment{
		AgentID:            "agent_0001",
		ConversationFlowID: "conversation_flow_0001",
		CompanyName:        "Green Valley Landscaping",
		Template:           "receptionist",
		CreatedAt:          contractEpoch,
	}
	second := domain.Deployment{
		AgentID:            "agent_0002",
		ConversationFlowID: "conversation_flow_0002",
		CompanyName:        "GreenLine AI",
		Template:           "outbound-sales",
		CreatedAt:          contractEpoch.Add(time.Minute),
	}

	t.Run("Record and Get", func(t *testing.T) {
		require.NoError(t, ledger.Record(ctx, second))
		require.NoError(t, ledger.Record(ctx, first))

		got, err := ledger.Get(ctx, first.AgentID)
		require.NoError(t, err)
		assert.Equal(t, first, *got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := ledger.Get(ctx, "agent_missing")
		assert.ErrorIs(t, err, domain.ErrDeploymentNotFound)
	})

	t.Run("List", func(t *testing.T) {
		list, err := ledger.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Deployment{first, second}, list)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, ledger.Delete(ctx, first.AgentID))
		_, err := ledger.Get(ctx, first.AgentID)
		assert.ErrorIs(t, err, domain.ErrDeploymentNotFound)
	})
}

// RunLockerContract verifies mutual exclusion and release of a DistributedLocker.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("150405.000")

	unlock, err := locker.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a held lock blocks until the context ends")

	other, err := locker.Lock(ctx, key+"-other", 5*time.Second)
	require.NoError(t, err, "locks on other keys are independent")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err, "a released lock can be taken again")
	require.NoError(t, again(ctx))
}
