// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		planRepo := repository.NewPlanRepository(testDB.DB)
		ctx := context.Background()

		created, err := fixtures.CreateTestPlan("starter", utils.ToPtr(1000))
		require.NoError(t, err)

		t.Run("ByName", func(t *testing.T) {
			plan, err := planRepo.ByName(ctx, "starter")
			require.NoError(t, err)
			require.NotNil(t, plan)
			assert.Equal(t, created.ID, plan.ID)
		})

		t.Run("ByNameMissing", func(t *testing.T) {
			plan, err := planRepo.ByName(ctx, "no-such-plan")
			require.NoError(t, err)
			assert.Nil(t, plan)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadRepositoryClaim(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadRepo := repository.NewLeadRepository(testDB.DB)
		ctx := context.Background()

		plan, err := fixtures.CreateTestPlan("claim-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)
		rival, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		t.Run("ClaimUnownedLead", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			ok, err := leadRepo.Claim(ctx, tenant.ID, lead.ID, agent.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.True(t, ok)

			var fresh models.Lead
			require.NoError(t, testDB.DB.First(&fresh, lead.ID).Error)
			assert.Equal(t, models.LeadStatusInProgress, fresh.Status)
			require.NotNil(t, fresh.UserID)
			assert.Equal(t, agent.ID, *fresh.UserID)
		})

		t.Run("SecondClaimLoses", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			ok, err := leadRepo.Claim(ctx, tenant.ID, lead.ID, agent.ID, utils.UTCNow())
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = leadRepo.Claim(ctx, tenant.ID, lead.ID, rival.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)

			// Owner is unchanged
			var fresh models.Lead
			require.NoError(t, testDB.DB.First(&fresh, lead.ID).Error)
			require.NotNil(t, fresh.UserID)
			assert.Equal(t, agent.ID, *fresh.UserID)
		})

		t.Run("ClaimAcrossTenantsFails", func(t *testing.T) {
			otherTenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(otherTenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			ok, err := leadRepo.Claim(ctx, tenant.ID, lead.ID, agent.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadRepositoryTerminalTransitions(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadRepo := repository.NewLeadRepository(testDB.DB)
		ctx := context.Background()

		plan, err := fixtures.CreateTestPlan("terminal-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		agent, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)
		rival, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		t.Run("MarkLostByOwner", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			ok, err := leadRepo.MarkLost(ctx, tenant.ID, lead.ID, &agent.ID, "budget cut")
			require.NoError(t, err)
			assert.True(t, ok)

			var fresh models.Lead
			require.NoError(t, testDB.DB.First(&fresh, lead.ID).Error)
			assert.Equal(t, models.LeadStatusLost, fresh.Status)
			require.NotNil(t, fresh.LossReason)
			assert.Equal(t, "budget cut", *fresh.LossReason)
		})

		t.Run("MarkLostByNonOwnerFails", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			ok, err := leadRepo.MarkLost(ctx, tenant.ID, lead.ID, &rival.ID, "poached")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("MarkLostWithoutOwnerPredicate", func(t *testing.T) {
			// Admins and owners pass nil and may close any active lead
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			ok, err := leadRepo.MarkLost(ctx, tenant.ID, lead.ID, nil, "stale")
			require.NoError(t, err)
			assert.True(t, ok)
		})

		t.Run("MarkConvertedOnlyFromInProgress", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusInProgress, &agent.ID)
			require.NoError(t, err)

			ok, err := leadRepo.MarkConverted(ctx, tenant.ID, lead.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.True(t, ok)

			// Terminal rows never transition again
			ok, err = leadRepo.MarkConverted(ctx, tenant.ID, lead.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = leadRepo.MarkLost(ctx, tenant.ID, lead.ID, nil, "late")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("NewLeadCannotConvert", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(tenant.ID, models.LeadStatusNew, nil)
			require.NoError(t, err)

			ok, err := leadRepo.MarkConverted(ctx, tenant.ID, lead.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTenantRepositoryQuotaCounters(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		tenantRepo := repository.NewTenantRepository(testDB.DB)
		ctx := context.Background()

		plan, err := fixtures.CreateTestPlan("quota-plan", utils.ToPtr(3))
		require.NoError(t, err)

		t.Run("IncrementStopsAtLimit", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)
			limit := utils.ToPtr(3)

			for want := 1; want <= 3; want++ {
				usage, ok, err := tenantRepo.IncrementEmailUsage(ctx, tenant.ID, limit)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, want, usage)
			}

			usage, ok, err := tenantRepo.IncrementEmailUsage(ctx, tenant.ID, limit)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 3, usage)
		})

		t.Run("NilLimitNeverStops", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)

			for want := 1; want <= 10; want++ {
				usage, ok, err := tenantRepo.IncrementEmailUsage(ctx, tenant.ID, nil)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, want, usage)
			}
		})

		t.Run("ResetClearsCounterAndWarning", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)

			lastMonth := utils.UTCNow().AddDate(0, -1, 0)
			require.NoError(t, testDB.DB.Model(&models.Tenant{}).
				Where("id = ?", tenant.ID).
				Updates(map[string]any{
					"email_usage_count": 3,
					"email_reset_date":  lastMonth,
					"email_warned_90":   true,
				}).Error)

			now := utils.UTCNow()
			ok, err := tenantRepo.ResetEmailUsage(ctx, tenant.ID, now)
			require.NoError(t, err)
			assert.True(t, ok)

			var fresh models.Tenant
			require.NoError(t, testDB.DB.First(&fresh, tenant.ID).Error)
			assert.Equal(t, 0, fresh.EmailUsageCount)
			assert.False(t, utils.IsTrue(fresh.EmailWarned90))

			// A second reset in the same month matches no rows
			ok, err = tenantRepo.ResetEmailUsage(ctx, tenant.ID, now)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("MarkWarned90SingleFire", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant(plan.ID)
			require.NoError(t, err)

			ok, err := tenantRepo.MarkWarned90(ctx, tenant.ID)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = tenantRepo.MarkWarned90(ctx, tenant.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestNotificationRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		notifRepo := repository.NewNotificationRepository(testDB.DB)
		ctx := context.Background()

		plan, err := fixtures.CreateTestPlan("notif-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)
		other, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		save := func(userID uint, title string) *models.Notification {
			n := &models.Notification{
				TenantID: tenant.ID,
				UserID:   userID,
				Type:     models.NotificationTypeTaskDue,
				Title:    title,
				Message:  "message",
				Read:     utils.ToPtr(false),
			}
			require.NoError(t, notifRepo.Save(ctx, n))
			return n
		}

		first := save(user.ID, "first")
		save(user.ID, "second")
		save(other.ID, "someone else")

		t.Run("CountUnread", func(t *testing.T) {
			count, err := notifRepo.CountUnread(ctx, tenant.ID, user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("MarkRead", func(t *testing.T) {
			ok, err := notifRepo.MarkRead(ctx, tenant.ID, user.ID, first.ID)
			require.NoError(t, err)
			assert.True(t, ok)

			// Repeated and cross-user marks match nothing
			ok, err = notifRepo.MarkRead(ctx, tenant.ID, user.ID, first.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = notifRepo.MarkRead(ctx, tenant.ID, other.ID, first.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("MarkAllRead", func(t *testing.T) {
			affected, err := notifRepo.MarkAllRead(ctx, tenant.ID, user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), affected)

			count, err := notifRepo.CountUnread(ctx, tenant.ID, user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)

			// The other user's unread notification is untouched
			count, err = notifRepo.CountUnread(ctx, tenant.ID, other.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTaskRepositoryReminders(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		taskRepo := repository.NewTaskRepository(testDB.DB)
		ctx := context.Background()

		plan, err := fixtures.CreateTestPlan("task-plan", nil)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant(plan.ID)
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(tenant.ID, models.RoleAgent)
		require.NoError(t, err)

		soon := utils.UTCNow().Add(time.Hour)
		later := utils.UTCNow().Add(72 * time.Hour)

		dueSoon := &models.Task{
			UUID:       utils.NewUUID(),
			TenantID:   tenant.ID,
			Title:      "Call back",
			Status:     models.TaskStatusPending,
			Priority:   models.TaskPriorityNormal,
			AssigneeID: user.ID,
			DueAt:      &soon,
		}
		require.NoError(t, taskRepo.Save(ctx, dueSoon))

		dueLater := &models.Task{
			UUID:       utils.NewUUID(),
			TenantID:   tenant.ID,
			Title:      "Quarterly review",
			Status:     models.TaskStatusPending,
			Priority:   models.TaskPriorityLow,
			AssigneeID: user.ID,
			DueAt:      &later,
		}
		require.NoError(t, taskRepo.Save(ctx, dueLater))

		noDue := &models.Task{
			UUID:       utils.NewUUID(),
			TenantID:   tenant.ID,
			Title:      "Someday",
			Status:     models.TaskStatusPending,
			Priority:   models.TaskPriorityLow,
			AssigneeID: user.ID,
		}
		require.NoError(t, taskRepo.Save(ctx, noDue))

		t.Run("DueForReminderWindow", func(t *testing.T) {
			due, err := taskRepo.DueForReminder(ctx, utils.UTCNow().Add(24*time.Hour), 10)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, dueSoon.ID, due[0].ID)
		})

		t.Run("MarkReminderSentSingleFire", func(t *testing.T) {
			ok, err := taskRepo.MarkReminderSent(ctx, dueSoon.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = taskRepo.MarkReminderSent(ctx, dueSoon.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)

			// Stamped tasks drop out of the reminder scan
			due, err := taskRepo.DueForReminder(ctx, utils.UTCNow().Add(24*time.Hour), 10)
			require.NoError(t, err)
			assert.Empty(t, due)
		})

		t.Run("CompletedTaskNotReminded", func(t *testing.T) {
			ok, err := taskRepo.Complete(ctx, tenant.ID, dueLater.ID, utils.UTCNow())
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = taskRepo.MarkReminderSent(ctx, dueLater.ID, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, ok)
		})

		return nil
	})
	require.NoError(t, err)
}
