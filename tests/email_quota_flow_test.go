// Package tests contains integration tests for the email quota gate
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/atlascrm/atlas/app/services"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuotaFlow(testDB *testingutil.TestDB, provider services.EmailProvider) businessflow.EmailQuotaFlow {
	return businessflow.NewEmailQuotaFlow(
		repository.NewTenantRepository(testDB.DB),
		repository.NewNotificationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		services.NewEmailService(provider),
		testDB.DB,
	)
}

// quotaTenant creates a tenant on a plan with the given email cap, with an
// owner user wired up to receive threshold notifications
func quotaTenant(t *testing.T, fixtures *testingutil.TestFixtures, testDB *testingutil.TestDB, planName string, limit *int) (*models.Tenant, *models.User) {
	t.Helper()

	plan, err := fixtures.CreateTestPlan(planName, limit)
	require.NoError(t, err)
	tenant, err := fixtures.CreateTestTenant(plan.ID)
	require.NoError(t, err)
	owner, err := fixtures.CreateTestUser(tenant.ID, models.RoleOwner)
	require.NoError(t, err)

	require.NoError(t, testDB.DB.Model(&models.Tenant{}).
		Where("id = ?", tenant.ID).
		Update("owner_user_id", owner.ID).Error)
	tenant.OwnerUserID = &owner.ID

	return tenant, owner
}

func countNotifications(t *testing.T, testDB *testingutil.TestDB, tenantID uint, notifType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, testDB.DB.Model(&models.Notification{}).
		Where("tenant_id = ? AND type = ?", tenantID, notifType).
		Count(&count).Error)
	return count
}

func tenantUsage(t *testing.T, testDB *testingutil.TestDB, tenantID uint) *models.Tenant {
	t.Helper()
	var tenant models.Tenant
	require.NoError(t, testDB.DB.First(&tenant, tenantID).Error)
	return &tenant
}

func TestSendEmailCountsAgainstQuota(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "count-plan", utils.ToPtr(10))
		actor := actorFor(owner)

		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Hello", "Body"))
		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Hello again", "Body"))

		assert.Len(t, provider.Sent, 2)
		assert.Equal(t, 2, tenantUsage(t, testDB, tenant.ID).EmailUsageCount)

		usage, err := quotaFlow.GetEmailUsage(context.Background(), actor)
		require.NoError(t, err)
		assert.Equal(t, 2, usage.Used)
		require.NotNil(t, usage.Limit)
		assert.Equal(t, 10, *usage.Limit)
		assert.False(t, usage.Exhausted)

		return nil
	})
	require.NoError(t, err)
}

func TestQuotaHardStop(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "stop-plan", utils.ToPtr(3))
		actor := actorFor(owner)

		for i := 0; i < 3; i++ {
			require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", fmt.Sprintf("Mail %d", i), "Body"))
		}

		// The send that hits the cap raises the limit-reached notice
		assert.Equal(t, int64(1), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaLimit))

		// One past the limit is rejected and never counted or delivered
		err := quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Blocked", "Body")
		require.Error(t, err)
		assert.True(t, businessflow.IsQuotaExceeded(err))
		assert.Len(t, provider.Sent, 3)
		assert.Equal(t, 3, tenantUsage(t, testDB, tenant.ID).EmailUsageCount)
		assert.Equal(t, int64(1), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaBlocked))

		usage, err2 := quotaFlow.GetEmailUsage(context.Background(), actor)
		require.NoError(t, err2)
		assert.True(t, usage.Exhausted)

		return nil
	})
	require.NoError(t, err)
}

func TestQuotaWarningFiresOnce(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "warn-plan", utils.ToPtr(10))
		actor := actorFor(owner)

		for i := 0; i < 8; i++ {
			require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))
		}
		assert.Equal(t, int64(0), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaWarning))

		// The ninth send crosses 90%
		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))
		assert.Equal(t, int64(1), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaWarning))
		assert.True(t, utils.IsTrue(tenantUsage(t, testDB, tenant.ID).EmailWarned90))

		// Further sends stay above the threshold but the warning never repeats
		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))
		assert.Equal(t, int64(1), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaWarning))

		return nil
	})
	require.NoError(t, err)
}

func TestQuotaLazyMonthlyReset(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "reset-plan", utils.ToPtr(5))
		actor := actorFor(owner)

		// Exhausted counter left over from last month
		lastMonth := utils.UTCNow().AddDate(0, -1, 0)
		require.NoError(t, testDB.DB.Model(&models.Tenant{}).
			Where("id = ?", tenant.ID).
			Updates(map[string]any{
				"email_usage_count": 5,
				"email_reset_date":  lastMonth,
				"email_warned_90":   true,
			}).Error)

		// Usage reads as zero before any send touches the row
		usage, err := quotaFlow.GetEmailUsage(context.Background(), actor)
		require.NoError(t, err)
		assert.Equal(t, 0, usage.Used)
		assert.False(t, usage.Warned90)
		assert.False(t, usage.Exhausted)

		// The first send of the new month resets and counts itself
		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))

		fresh := tenantUsage(t, testDB, tenant.ID)
		assert.Equal(t, 1, fresh.EmailUsageCount)
		assert.False(t, utils.IsTrue(fresh.EmailWarned90))
		assert.Equal(t, utils.UTCNow().Month(), fresh.EmailResetDate.UTC().Month())

		return nil
	})
	require.NoError(t, err)
}

func TestFailedDeliveryNotCounted(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		quotaFlow := newQuotaFlow(testDB, services.NewFailingEmailProvider())

		tenant, owner := quotaTenant(t, fixtures, testDB, "fail-plan", utils.ToPtr(5))
		actor := actorFor(owner)

		err := quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body")
		require.Error(t, err)
		assert.False(t, businessflow.IsQuotaExceeded(err))

		// The rolled-back transaction left the counter untouched
		assert.Equal(t, 0, tenantUsage(t, testDB, tenant.ID).EmailUsageCount)

		return nil
	})
	require.NoError(t, err)
}

func TestUnlimitedPlanNeverBlocks(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "unlimited-plan", nil)
		actor := actorFor(owner)

		for i := 0; i < 20; i++ {
			require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))
		}

		assert.Equal(t, 20, tenantUsage(t, testDB, tenant.ID).EmailUsageCount)
		assert.Equal(t, int64(0), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaWarning))
		assert.Equal(t, int64(0), countNotifications(t, testDB, tenant.ID, models.NotificationTypeQuotaLimit))

		usage, err := quotaFlow.GetEmailUsage(context.Background(), actor)
		require.NoError(t, err)
		assert.Nil(t, usage.Limit)
		assert.False(t, usage.Exhausted)

		return nil
	})
	require.NoError(t, err)
}

// Guards against clock-dependent flakiness around month boundaries: sends in
// the same month as the stored reset date never trigger a reset.
func TestNoResetWithinSameMonth(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		provider := services.NewMockEmailProvider()
		quotaFlow := newQuotaFlow(testDB, provider)

		tenant, owner := quotaTenant(t, fixtures, testDB, "same-month-plan", utils.ToPtr(10))
		actor := actorFor(owner)

		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))
		before := tenantUsage(t, testDB, tenant.ID)

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, quotaFlow.SendEmail(context.Background(), actor, "c@example.com", "Mail", "Body"))

		after := tenantUsage(t, testDB, tenant.ID)
		assert.Equal(t, before.EmailUsageCount+1, after.EmailUsageCount)

		return nil
	})
	require.NoError(t, err)
}
