// Package tests contains integration tests for the proposal workflow
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/atlascrm/atlas/app/services"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProposalFlow(testDB *testingutil.TestDB, provider services.EmailProvider) businessflow.ProposalFlow {
	quotaFlow := businessflow.NewEmailQuotaFlow(
		repository.NewTenantRepository(testDB.DB),
		repository.NewNotificationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		services.NewEmailService(provider),
		testDB.DB,
	)
	return businessflow.NewProposalFlow(
		repository.NewProposalRepository(testDB.DB),
		repository.NewDealRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		repository.NewNotificationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		quotaFlow,
		testDB.DB,
	)
}

// draftProposal sets up a tenant on a plan with the given email cap, a deal
// with an emailable contact, and a draft proposal against that deal
func draftProposal(t *testing.T, fixtures *testingutil.TestFixtures, testDB *testingutil.TestDB, planName string, limit *int) (businessflow.Actor, *models.Tenant, *models.Contact, *models.Proposal) {
	t.Helper()

	tenant, owner := quotaTenant(t, fixtures, testDB, planName, limit)
	contact, err := fixtures.CreateTestContact(tenant.ID, nil)
	require.NoError(t, err)
	deal, err := fixtures.CreateTestDeal(tenant.ID, contact.ID, owner.ID, models.DealStageProposal, 250000)
	require.NoError(t, err)

	proposal := &models.Proposal{
		UUID:     uuid.New(),
		TenantID: tenant.ID,
		DealID:   deal.ID,
		UserID:   owner.ID,
		Title:    "Annual service agreement",
		Body:     "Scope and pricing attached.",
		Amount:   250000,
		Status:   models.ProposalStatusDraft,
	}
	require.NoError(t, testDB.DB.Create(proposal).Error)

	return actorFor(owner), tenant, contact, proposal
}

func TestSendProposal(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		t.Run("DeliversEmailWithinQuota", func(t *testing.T) {
			provider := services.NewMockEmailProvider()
			flow := newProposalFlow(testDB, provider)
			actor, tenant, contact, proposal := draftProposal(t, fixtures, testDB, "send-plan", utils.ToPtr(10))

			result, err := flow.SendProposal(context.Background(), actor, proposal.UUID.String(), metadata)
			require.NoError(t, err)
			assert.Equal(t, models.ProposalStatusSent, result.Status)

			var stored models.Proposal
			require.NoError(t, testDB.DB.First(&stored, proposal.ID).Error)
			assert.Equal(t, models.ProposalStatusSent, stored.Status)
			require.NotNil(t, stored.SentAt)

			// The email leaves in the background and is counted on arrival
			require.Eventually(t, func() bool {
				return len(provider.Deliveries()) == 1
			}, 2*time.Second, 20*time.Millisecond)
			assert.Equal(t, *contact.Email, provider.Deliveries()[0].To)
			require.Eventually(t, func() bool {
				var stored models.Tenant
				testDB.DB.First(&stored, tenant.ID)
				return stored.EmailUsageCount == 1
			}, 2*time.Second, 20*time.Millisecond)
		})

		t.Run("QuotaExhaustionDoesNotBlockSend", func(t *testing.T) {
			provider := services.NewMockEmailProvider()
			flow := newProposalFlow(testDB, provider)
			actor, tenant, _, proposal := draftProposal(t, fixtures, testDB, "exhausted-plan", utils.ToPtr(0))

			result, err := flow.SendProposal(context.Background(), actor, proposal.UUID.String(), metadata)
			require.NoError(t, err)
			assert.Equal(t, models.ProposalStatusSent, result.Status)

			var stored models.Proposal
			require.NoError(t, testDB.DB.First(&stored, proposal.ID).Error)
			assert.Equal(t, models.ProposalStatusSent, stored.Status)
			require.NotNil(t, stored.SentAt)

			// The background send hits the gate and raises the blocked notice
			require.Eventually(t, func() bool {
				var count int64
				testDB.DB.Model(&models.Notification{}).
					Where("tenant_id = ? AND type = ?", tenant.ID, models.NotificationTypeQuotaBlocked).
					Count(&count)
				return count == 1
			}, 2*time.Second, 20*time.Millisecond)

			// Nothing was delivered or counted
			assert.Empty(t, provider.Deliveries())
			assert.Equal(t, 0, tenantUsage(t, testDB, tenant.ID).EmailUsageCount)
		})

		t.Run("ResendConflicts", func(t *testing.T) {
			provider := services.NewMockEmailProvider()
			flow := newProposalFlow(testDB, provider)
			actor, _, _, proposal := draftProposal(t, fixtures, testDB, "resend-plan", utils.ToPtr(10))

			_, err := flow.SendProposal(context.Background(), actor, proposal.UUID.String(), metadata)
			require.NoError(t, err)

			_, err = flow.SendProposal(context.Background(), actor, proposal.UUID.String(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsProposalConflict(err))
		})

		return nil
	})
	require.NoError(t, err)
}
