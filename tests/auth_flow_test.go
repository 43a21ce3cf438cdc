// Package tests contains integration tests for authentication workflows
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/app/services"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	testingutil "github.com/atlascrm/atlas/testing"
	"github.com/atlascrm/atlas/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.AuthFlow {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"atlas-test",
		"atlas-api",
		false,
		"", "",
		"test-secret-key-for-auth-flow-tests-only",
	)
	require.NoError(t, err)

	return businessflow.NewAuthFlow(
		repository.NewTenantRepository(testDB.DB),
		repository.NewPlanRepository(testDB.DB),
		repository.NewUserRepository(testDB.DB),
		repository.NewUserSessionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		tokenService,
		4,
		testDB.DB,
	)
}

func signupRequest(email string) *dto.SignupRequest {
	return &dto.SignupRequest{
		TenantName:      "Acme Corp",
		Plan:            models.PlanFree,
		FirstName:       "John",
		LastName:        "Doe",
		Email:           email,
		Password:        "SecurePass123!",
		ConfirmPassword: "SecurePass123!",
	}
}

func TestSignup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestPlan(models.PlanFree, utils.ToPtr(100))
		require.NoError(t, err)

		authFlow := newAuthFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		t.Run("SuccessfulSignup", func(t *testing.T) {
			data, err := authFlow.Signup(context.Background(), signupRequest("john@acme.example.com"), metadata)
			require.NoError(t, err)
			require.NotNil(t, data)

			assert.Equal(t, "john@acme.example.com", data.User.Email)
			assert.Equal(t, models.RoleOwner, data.User.Role)
			assert.Equal(t, "Acme Corp", data.Tenant.Name)
			assert.Equal(t, models.PlanFree, data.Tenant.Plan)
			assert.NotEmpty(t, data.Session.AccessToken)
			assert.NotEmpty(t, data.Session.RefreshToken)
			assert.Equal(t, "Bearer", data.Session.TokenType)

			// The new tenant's owner is wired to the signup user
			var tenant models.Tenant
			require.NoError(t, testDB.DB.First(&tenant, data.Tenant.ID).Error)
			require.NotNil(t, tenant.OwnerUserID)
			assert.Equal(t, data.User.ID, *tenant.OwnerUserID)

			// The session row exists and is active
			var count int64
			require.NoError(t, testDB.DB.Model(&models.UserSession{}).
				Where("user_id = ? AND is_active = ?", data.User.ID, true).
				Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("SameEmailAcrossWorkspaces", func(t *testing.T) {
			// Email uniqueness is scoped to the tenant, so the same address may
			// own two separate workspaces.
			first, err := authFlow.Signup(context.Background(), signupRequest("dup@acme.example.com"), metadata)
			require.NoError(t, err)

			second, err := authFlow.Signup(context.Background(), signupRequest("dup@acme.example.com"), metadata)
			require.NoError(t, err)
			assert.NotEqual(t, first.Tenant.ID, second.Tenant.ID)
		})

		t.Run("UnknownPlanRejected", func(t *testing.T) {
			req := signupRequest("plan@acme.example.com")
			req.Plan = "platinum"

			_, err := authFlow.Signup(context.Background(), req, metadata)
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestPlan(models.PlanFree, utils.ToPtr(100))
		require.NoError(t, err)

		authFlow := newAuthFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		signup, err := authFlow.Signup(context.Background(), signupRequest("login@acme.example.com"), metadata)
		require.NoError(t, err)

		t.Run("SuccessfulLogin", func(t *testing.T) {
			data, err := authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "login@acme.example.com",
				Password: "SecurePass123!",
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, signup.User.ID, data.User.ID)
			assert.NotEmpty(t, data.Session.AccessToken)
			assert.NotEqual(t, signup.Session.AccessToken, data.Session.AccessToken)

			var user models.User
			require.NoError(t, testDB.DB.First(&user, data.User.ID).Error)
			assert.NotNil(t, user.LastLoginAt)
		})

		t.Run("EmailIsCaseInsensitive", func(t *testing.T) {
			_, err := authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "Login@Acme.Example.Com",
				Password: "SecurePass123!",
			}, metadata)
			require.NoError(t, err)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "login@acme.example.com",
				Password: "WrongPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			_, err := authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "nobody@acme.example.com",
				Password: "SecurePass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("InactiveUserRejected", func(t *testing.T) {
			require.NoError(t, testDB.DB.Model(&models.User{}).
				Where("id = ?", signup.User.ID).
				Update("is_active", false).Error)
			defer func() {
				require.NoError(t, testDB.DB.Model(&models.User{}).
					Where("id = ?", signup.User.ID).
					Update("is_active", true).Error)
			}()

			_, err := authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "login@acme.example.com",
				Password: "SecurePass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRefreshToken(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestPlan(models.PlanFree, utils.ToPtr(100))
		require.NoError(t, err)

		authFlow := newAuthFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		signup, err := authFlow.Signup(context.Background(), signupRequest("refresh@acme.example.com"), metadata)
		require.NoError(t, err)

		t.Run("RotatesTokenPair", func(t *testing.T) {
			session, err := authFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: signup.Session.RefreshToken,
			}, metadata)
			require.NoError(t, err)

			assert.NotEmpty(t, session.AccessToken)
			assert.NotEqual(t, signup.Session.AccessToken, session.AccessToken)
			assert.NotEqual(t, signup.Session.RefreshToken, session.RefreshToken)

			// The original session is expired by the rotation
			var old models.UserSession
			require.NoError(t, testDB.DB.
				Where("session_token = ?", signup.Session.AccessToken).
				First(&old).Error)
			assert.False(t, utils.IsTrue(old.IsActive))
		})

		t.Run("ExpiredRefreshTokenRejected", func(t *testing.T) {
			// The token was rotated above, so the old one no longer maps to a
			// valid session
			_, err := authFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: signup.Session.RefreshToken,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsSessionNotFound(err))
		})

		t.Run("UnknownRefreshTokenRejected", func(t *testing.T) {
			_, err := authFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: "not-a-real-token",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsSessionNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestPlan(models.PlanFree, utils.ToPtr(100))
		require.NoError(t, err)

		authFlow := newAuthFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		signup, err := authFlow.Signup(context.Background(), signupRequest("logout@acme.example.com"), metadata)
		require.NoError(t, err)

		actor := businessflow.Actor{
			TenantID: signup.Tenant.ID,
			UserID:   signup.User.ID,
			Role:     signup.User.Role,
		}

		t.Run("SuccessfulLogout", func(t *testing.T) {
			require.NoError(t, authFlow.Logout(context.Background(), actor, signup.Session.AccessToken, metadata))

			var session models.UserSession
			require.NoError(t, testDB.DB.
				Where("session_token = ?", signup.Session.AccessToken).
				First(&session).Error)
			assert.False(t, utils.IsTrue(session.IsActive))
		})

		t.Run("LogoutTwiceFails", func(t *testing.T) {
			err := authFlow.Logout(context.Background(), actor, signup.Session.AccessToken, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsSessionNotFound(err))
		})

		t.Run("CannotLogoutSomeoneElsesSession", func(t *testing.T) {
			other, err := authFlow.Signup(context.Background(), signupRequest("other@acme.example.com"), metadata)
			require.NoError(t, err)

			err = authFlow.Logout(context.Background(), actor, other.Session.AccessToken, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsSessionNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestPlan(models.PlanFree, utils.ToPtr(100))
		require.NoError(t, err)

		authFlow := newAuthFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("192.168.1.1", "test-agent")

		signup, err := authFlow.Signup(context.Background(), signupRequest("pwd@acme.example.com"), metadata)
		require.NoError(t, err)

		actor := businessflow.Actor{
			TenantID: signup.Tenant.ID,
			UserID:   signup.User.ID,
			Role:     signup.User.Role,
		}

		t.Run("WrongCurrentPassword", func(t *testing.T) {
			_, err := authFlow.ChangePassword(context.Background(), actor, &dto.ChangePasswordRequest{
				CurrentPassword: "NotThePassword1!",
				NewPassword:     "EvenMoreSecure456!",
				ConfirmPassword: "EvenMoreSecure456!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("SuccessfulChangeExpiresSessions", func(t *testing.T) {
			data, err := authFlow.ChangePassword(context.Background(), actor, &dto.ChangePasswordRequest{
				CurrentPassword: "SecurePass123!",
				NewPassword:     "EvenMoreSecure456!",
				ConfirmPassword: "EvenMoreSecure456!",
			}, metadata)
			require.NoError(t, err)
			assert.False(t, data.PasswordChangedAt.IsZero())

			// Every session of the user is expired
			var active int64
			require.NoError(t, testDB.DB.Model(&models.UserSession{}).
				Where("user_id = ? AND is_active = ?", signup.User.ID, true).
				Count(&active).Error)
			assert.Equal(t, int64(0), active)

			// Old password no longer works, the new one does
			_, err = authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "pwd@acme.example.com",
				Password: "SecurePass123!",
			}, metadata)
			require.Error(t, err)

			_, err = authFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "pwd@acme.example.com",
				Password: "EvenMoreSecure456!",
			}, metadata)
			require.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}
