// Package tests contains integration tests for the lead lifecycle
package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeadFlow(testDB *testingutil.TestDB) businessflow.LeadFlow {
	return businessflow.NewLeadFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewLeadLogRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		repository.NewCompanyRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

// convertFaultRepo wraps the real lead repository and fails the final
// conditional update of a conversion, standing in for a storage failure
// or a race lost at the last moment.
type convertFaultRepo struct {
	repository.LeadRepository
	markConvertedErr error
}

func (r *convertFaultRepo) MarkConverted(ctx context.Context, tenantID, leadID uint, at time.Time) (bool, error) {
	if r.markConvertedErr != nil {
		return false, r.markConvertedErr
	}
	return false, nil
}

func newLeadFlowWithRepo(testDB *testingutil.TestDB, leadRepo repository.LeadRepository) businessflow.LeadFlow {
	return businessflow.NewLeadFlow(
		leadRepo,
		repository.NewLeadLogRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		repository.NewCompanyRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func actorFor(user *models.User) businessflow.Actor {
	return businessflow.Actor{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Role:     user.Role,
	}
}

func TestClaimLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadFlow := newLeadFlow(testDB)

		plan, err := fixtures.CreateTestPlan("claim-plan", utils.ToPtr(100))
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		t.Run("SuccessfulClaim", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			claimed, err := leadFlow.ClaimLead(context.Background(), actorFor(agent), lead.UUID.String(), metadata)
			require.NoError(t, err)
			require.NotNil(t, claimed)
			assert.Equal(t, models.LeadStatusInProgress, claimed.Status)
			require.NotNil(t, claimed.OwnerID)
			assert.Equal(t, agent.ID, *claimed.OwnerID)

			// The claim leaves a log entry behind it
			var logs []models.LeadLog
			require.NoError(t, testDB.DB.Where("lead_id = ? AND action = ?", lead.ID, models.LeadActionClaimed).Find(&logs).Error)
			assert.Len(t, logs, 1)
		})

		t.Run("ClaimAlreadyClaimedLead", func(t *testing.T) {
			other, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &other.ID)
			require.NoError(t, err)

			_, err = leadFlow.ClaimLead(context.Background(), actorFor(agent), lead.UUID.String(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadConflict(err))
		})

		t.Run("ClaimNonexistentLeadReadsAsConflict", func(t *testing.T) {
			_, err := leadFlow.ClaimLead(context.Background(), actorFor(agent), "550e8400-e29b-41d4-a716-446655440000", metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadConflict(err))
			assert.False(t, businessflow.IsLeadNotFound(err))
		})

		t.Run("ClaimForeignLeadReadsAsConflict", func(t *testing.T) {
			otherPlan, err := fixtures.CreateTestPlan("foreign-claim-plan", nil)
			require.NoError(t, err)
			otherTenant, err := fixtures.CreateTestTenant(otherPlan.ID)
			require.NoError(t, err)
			foreign, err := fixtures.CreateTestLead(otherTenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			// Indistinguishable from the nonexistent case
			_, err = leadFlow.ClaimLead(context.Background(), actorFor(agent), foreign.UUID.String(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadConflict(err))
			assert.False(t, businessflow.IsLeadNotFound(err))

			// And the foreign lead itself is untouched
			var stored models.Lead
			require.NoError(t, testDB.DB.First(&stored, foreign.ID).Error)
			assert.Equal(t, models.LeadStatusNew, stored.Status)
			assert.Nil(t, stored.UserID)
		})

		t.Run("ConcurrentClaimSingleWinner", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			const claimers = 8
			agents := make([]*models.User, claimers)
			for i := range agents {
				agents[i], err = fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
				require.NoError(t, err)
			}

			var wg sync.WaitGroup
			results := make(chan error, claimers)
			for i := 0; i < claimers; i++ {
				wg.Add(1)
				go func(u *models.User) {
					defer wg.Done()
					_, err := leadFlow.ClaimLead(context.Background(), actorFor(u), lead.UUID.String(), metadata)
					results <- err
				}(agents[i])
			}
			wg.Wait()
			close(results)

			wins, conflicts := 0, 0
			for err := range results {
				switch {
				case err == nil:
					wins++
				case businessflow.IsLeadConflict(err):
					conflicts++
				default:
					t.Fatalf("unexpected claim error: %v", err)
				}
			}
			assert.Equal(t, 1, wins)
			assert.Equal(t, claimers-1, conflicts)

			var fresh models.Lead
			require.NoError(t, testDB.DB.First(&fresh, lead.ID).Error)
			assert.Equal(t, models.LeadStatusInProgress, fresh.Status)
			require.NotNil(t, fresh.UserID)

			// Exactly one claimed log entry despite the race
			var count int64
			require.NoError(t, testDB.DB.Model(&models.LeadLog{}).
				Where("lead_id = ? AND action = ?", lead.ID, models.LeadActionClaimed).
				Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLoseLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadFlow := newLeadFlow(testDB)

		plan, err := fixtures.CreateTestPlan("lose-plan", utils.ToPtr(100))
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)
		admin, err := fixtures.CreateTestUser(tenant.ID, models.RoleAdmin)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
		reason := &dto.LoseLeadRequest{Reason: "Went with a competitor"}

		t.Run("AgentLosesOwnLead", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			lost, err := leadFlow.LoseLead(context.Background(), actorFor(agent), lead.UUID.String(), reason, metadata)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusLost, lost.Status)
			require.NotNil(t, lost.LossReason)
			assert.Equal(t, reason.Reason, *lost.LossReason)

			var logs []models.LeadLog
			require.NoError(t, testDB.DB.Where("lead_id = ? AND action = ?", lead.ID, models.LeadActionLost).Find(&logs).Error)
			assert.Len(t, logs, 1)
		})

		t.Run("AgentCannotLoseOthersLead", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &admin.ID)
			require.NoError(t, err)

			_, err = leadFlow.LoseLead(context.Background(), actorFor(agent), lead.UUID.String(), reason, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadNotOwned(err))

			var fresh models.Lead
			require.NoError(t, testDB.DB.First(&fresh, lead.ID).Error)
			assert.Equal(t, models.LeadStatusInProgress, fresh.Status)
		})

		t.Run("AdminLosesAnyLead", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			lost, err := leadFlow.LoseLead(context.Background(), actorFor(admin), lead.UUID.String(), reason, metadata)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusLost, lost.Status)
		})

		t.Run("ReasonRequired", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			_, err = leadFlow.LoseLead(context.Background(), actorFor(agent), lead.UUID.String(), &dto.LoseLeadRequest{}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLossReasonRequired(err))
		})

		t.Run("TerminalLeadStaysTerminal", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusConverted, &agent.ID)
			require.NoError(t, err)

			_, err = leadFlow.LoseLead(context.Background(), actorFor(agent), lead.UUID.String(), reason, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadTerminal(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConvertLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadFlow := newLeadFlow(testDB)

		plan, err := fixtures.CreateTestPlan("convert-plan", utils.ToPtr(100))
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		t.Run("SuccessfulConversionWithCompany", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			companyName := "Prospect Inc"
			data, err := leadFlow.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), &dto.ConvertLeadRequest{
				CreateCompany: true,
				CompanyName:   &companyName,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, data)

			assert.Equal(t, models.LeadStatusConverted, data.Lead.Status)
			assert.NotNil(t, data.Lead.ConvertedAt)
			assert.Equal(t, lead.Name, data.Contact.Name)
			require.NotNil(t, data.Company)
			assert.Equal(t, companyName, data.Company.Name)

			// Contact links back to its source lead
			var contact models.Contact
			require.NoError(t, testDB.DB.First(&contact, data.Contact.ID).Error)
			require.NotNil(t, contact.LeadID)
			assert.Equal(t, lead.ID, *contact.LeadID)

			var logs []models.LeadLog
			require.NoError(t, testDB.DB.Where("lead_id = ? AND action = ?", lead.ID, models.LeadActionConverted).Find(&logs).Error)
			assert.Len(t, logs, 1)
		})

		t.Run("ConversionReusesExistingCompany", func(t *testing.T) {
			companyName := "Shared Holdings"
			first, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)
			second, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			req := &dto.ConvertLeadRequest{CreateCompany: true, CompanyName: &companyName}

			firstData, err := leadFlow.ConvertLead(context.Background(), actorFor(agent), first.UUID.String(), req, metadata)
			require.NoError(t, err)
			secondData, err := leadFlow.ConvertLead(context.Background(), actorFor(agent), second.UUID.String(), req, metadata)
			require.NoError(t, err)

			require.NotNil(t, firstData.Company)
			require.NotNil(t, secondData.Company)
			assert.Equal(t, firstData.Company.ID, secondData.Company.ID)
		})

		t.Run("ReconvertConflicts", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			_, err = leadFlow.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), &dto.ConvertLeadRequest{}, metadata)
			require.NoError(t, err)

			_, err = leadFlow.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), &dto.ConvertLeadRequest{}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadTerminal(err))

			// Exactly one contact came out of the lead
			var count int64
			require.NoError(t, testDB.DB.Model(&models.Contact{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("UnclaimedLeadCannotConvert", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			_, err = leadFlow.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), &dto.ConvertLeadRequest{}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadConflict(err))
		})

		// Everything written before a mid-conversion failure must vanish
		// with the rollback: no contact, no company, no log entry, and a
		// lead still claimed and in progress.
		assertNothingConverted := func(t *testing.T, lead *models.Lead) {
			t.Helper()

			var contacts int64
			require.NoError(t, testDB.DB.Model(&models.Contact{}).Where("lead_id = ?", lead.ID).Count(&contacts).Error)
			assert.Equal(t, int64(0), contacts)

			var companies int64
			require.NoError(t, testDB.DB.Model(&models.Company{}).Where("tenant_id = ? AND name = ?", lead.TenantID, "Doomed Ventures").Count(&companies).Error)
			assert.Equal(t, int64(0), companies)

			var logs int64
			require.NoError(t, testDB.DB.Model(&models.LeadLog{}).Where("lead_id = ? AND action = ?", lead.ID, models.LeadActionConverted).Count(&logs).Error)
			assert.Equal(t, int64(0), logs)

			var stored models.Lead
			require.NoError(t, testDB.DB.First(&stored, lead.ID).Error)
			assert.Equal(t, models.LeadStatusInProgress, stored.Status)
			require.NotNil(t, stored.UserID)
			assert.Equal(t, agent.ID, *stored.UserID)
			assert.Nil(t, stored.ConvertedAt)
		}

		companyName := "Doomed Ventures"
		convertReq := &dto.ConvertLeadRequest{CreateCompany: true, CompanyName: &companyName}

		t.Run("StorageFailureAfterContactInsertRollsBack", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			faulty := newLeadFlowWithRepo(testDB, &convertFaultRepo{
				LeadRepository:   repository.NewLeadRepository(testDB.DB),
				markConvertedErr: errors.New("connection reset by peer"),
			})

			_, err = faulty.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), convertReq, metadata)
			require.Error(t, err)

			assertNothingConverted(t, lead)
		})

		t.Run("RaceLostAtFinalUpdateRollsBack", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			faulty := newLeadFlowWithRepo(testDB, &convertFaultRepo{
				LeadRepository: repository.NewLeadRepository(testDB.DB),
			})

			_, err = faulty.ConvertLead(context.Background(), actorFor(agent), lead.UUID.String(), convertReq, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadConflict(err))

			assertNothingConverted(t, lead)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadLifecycleLog(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadFlow := newLeadFlow(testDB)

		plan, err := fixtures.CreateTestPlan("log-plan", utils.ToPtr(100))
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		actor := actorFor(agent)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		created, err := leadFlow.CreateLead(context.Background(), actor, &dto.CreateLeadRequest{
			Name:  "Lifecycle Lead",
			Email: utils.ToPtr(fmt.Sprintf("lifecycle.%d@example.com", tenant.ID)),
		}, metadata)
		require.NoError(t, err)

		_, err = leadFlow.ClaimLead(context.Background(), actor, created.UUID, metadata)
		require.NoError(t, err)

		_, err = leadFlow.ConvertLead(context.Background(), actor, created.UUID, &dto.ConvertLeadRequest{}, metadata)
		require.NoError(t, err)

		// Every transition left exactly one entry, in order
		detail, err := leadFlow.GetLead(context.Background(), actor, created.UUID)
		require.NoError(t, err)
		require.Len(t, detail.Logs, 3)
		assert.Equal(t, models.LeadActionCreated, detail.Logs[0].Action)
		assert.Equal(t, models.LeadActionClaimed, detail.Logs[1].Action)
		assert.Equal(t, models.LeadActionConverted, detail.Logs[2].Action)

		return nil
	})
	require.NoError(t, err)
}
