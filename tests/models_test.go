// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/atlascrm/atlas/models"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("PlanConstants", func(t *testing.T) {
			assert.Equal(t, "free", models.PlanFree)
			assert.Equal(t, "starter", models.PlanStarter)
			assert.Equal(t, "professional", models.PlanProfessional)
			assert.Equal(t, "enterprise", models.PlanEnterprise)
		})

		t.Run("TableName", func(t *testing.T) {
			plan := &models.Plan{}
			assert.Equal(t, "plans", plan.TableName())
		})

		t.Run("MeteredPlan", func(t *testing.T) {
			plan, err := fixtures.CreateTestPlan("metered", utils.ToPtr(100))
			require.NoError(t, err)
			assert.NotZero(t, plan.ID)
			assert.False(t, plan.IsUnlimitedEmails())
			require.NotNil(t, plan.MaxEmailsMonth)
			assert.Equal(t, 100, *plan.MaxEmailsMonth)
		})

		t.Run("UnlimitedPlan", func(t *testing.T) {
			plan, err := fixtures.CreateTestPlan("boundless", nil)
			require.NoError(t, err)
			assert.True(t, plan.IsUnlimitedEmails())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTenant(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		plan, err := fixtures.CreateTestPlan("tenant-plan", utils.ToPtr(50))
		require.NoError(t, err)

		t.Run("CreateTenant", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)
			assert.NotZero(t, tenant.ID)
			assert.True(t, utils.IsTrue(tenant.IsActive))
			assert.Equal(t, 0, tenant.EmailUsageCount)
			assert.False(t, utils.IsTrue(tenant.EmailWarned90))
		})

		t.Run("NeedsUsageReset", func(t *testing.T) {
			now := utils.UTCNow()

			tenant := &models.Tenant{EmailResetDate: now}
			assert.False(t, tenant.NeedsUsageReset(now))

			tenant.EmailResetDate = now.AddDate(0, -1, 0)
			assert.True(t, tenant.NeedsUsageReset(now))

			tenant.EmailResetDate = now.AddDate(-1, 0, 0)
			assert.True(t, tenant.NeedsUsageReset(now))

			// Same month in a different year still resets
			tenant.EmailResetDate = time.Date(now.Year()-1, now.Month(), 15, 0, 0, 0, 0, time.UTC)
			assert.True(t, tenant.NeedsUsageReset(now))
		})

		t.Run("EmailLimitComesFromPlan", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)

			var loaded models.Tenant
			require.NoError(t, testDB.DB.Preload("Plan").First(&loaded, tenant.ID).Error)

			limit := loaded.EmailLimit()
			require.NotNil(t, limit)
			assert.Equal(t, 50, *limit)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		plan, err := fixtures.CreateTestPlan("lead-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)

		t.Run("StatusConstants", func(t *testing.T) {
			assert.Equal(t, "new", models.LeadStatusNew)
			assert.Equal(t, "in_progress", models.LeadStatusInProgress)
			assert.Equal(t, "converted", models.LeadStatusConverted)
			assert.Equal(t, "lost", models.LeadStatusLost)
		})

		t.Run("IsTerminal", func(t *testing.T) {
			lead := &models.Lead{Status: models.LeadStatusNew}
			assert.False(t, lead.IsTerminal())

			lead.Status = models.LeadStatusInProgress
			assert.False(t, lead.IsTerminal())

			lead.Status = models.LeadStatusConverted
			assert.True(t, lead.IsTerminal())

			lead.Status = models.LeadStatusLost
			assert.True(t, lead.IsTerminal())
		})

		t.Run("CreateLead", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)
			assert.NotZero(t, lead.ID)
			assert.Equal(t, tenant.ID, lead.TenantID)
			assert.Nil(t, lead.UserID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeal(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		plan, err := fixtures.CreateTestPlan("deal-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)
		contact, err := fixtures.CreateTestContact(tenant.ID, nil)
		require.NoError(t, err)

		t.Run("StageOrdering", func(t *testing.T) {
			stages := models.DealStages()
			require.Len(t, stages, 5)
			assert.Equal(t, models.DealStageQualification, stages[0])
			assert.Equal(t, models.DealStageWon, stages[3])
			assert.Equal(t, models.DealStageLost, stages[4])
		})

		t.Run("IsClosed", func(t *testing.T) {
			deal := &models.Deal{Stage: models.DealStageNegotiation}
			assert.False(t, deal.IsClosed())

			deal.Stage = models.DealStageWon
			assert.True(t, deal.IsClosed())

			deal.Stage = models.DealStageLost
			assert.True(t, deal.IsClosed())
		})

		t.Run("CreateDeal", func(t *testing.T) {
			deal, err := fixtures.CreateTestDeal(tenant.ID, contact.ID, user.ID, models.DealStageProposal, 250000)
			require.NoError(t, err)
			assert.NotZero(t, deal.ID)
			assert.Equal(t, int64(250000), deal.Value)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTask(t *testing.T) {
	t.Run("IsOverdue", func(t *testing.T) {
		past := utils.UTCNow().Add(-time.Hour)
		future := utils.UTCNow().Add(time.Hour)

		task := &models.Task{Status: models.TaskStatusPending, DueAt: &past}
		assert.True(t, task.IsOverdue())

		task.DueAt = &future
		assert.False(t, task.IsOverdue())

		task.DueAt = &past
		task.Status = models.TaskStatusDone
		assert.False(t, task.IsOverdue())

		task.Status = models.TaskStatusPending
		task.DueAt = nil
		assert.False(t, task.IsOverdue())
	})
}

func TestUserSession(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		plan, err := fixtures.CreateTestPlan("session-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		t.Run("ActiveSessionIsValid", func(t *testing.T) {
			session, err := fixtures.CreateTestSession(user.ID)
			require.NoError(t, err)
			assert.True(t, session.IsValid())
		})

		t.Run("ExpiredSessionIsInvalid", func(t *testing.T) {
			session := &models.UserSession{
				IsActive:  utils.ToPtr(true),
				ExpiresAt: utils.UTCNow().Add(-time.Minute),
			}
			assert.False(t, session.IsValid())
		})

		t.Run("InactiveSessionIsInvalid", func(t *testing.T) {
			session := &models.UserSession{
				IsActive:  utils.ToPtr(false),
				ExpiresAt: utils.UTCNow().Add(time.Hour),
			}
			assert.False(t, session.IsValid())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUserRoles(t *testing.T) {
	assert.Equal(t, "owner", models.RoleOwner)
	assert.Equal(t, "admin", models.RoleAdmin)
	assert.Equal(t, "agent", models.RoleAgent)
}
