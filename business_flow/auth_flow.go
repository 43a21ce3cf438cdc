// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/app/services"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthFlow handles tenant signup, login, and session management
type AuthFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthData, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthData, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.SessionDTO, error)
	Logout(ctx context.Context, actor Actor, sessionToken string, metadata *ClientMetadata) error
	ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordData, error)
}

// AuthFlowImpl implements the auth business flow
type AuthFlowImpl struct {
	tenantRepo   repository.TenantRepository
	planRepo     repository.PlanRepository
	userRepo     repository.UserRepository
	sessionRepo  repository.UserSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	bcryptCost   int
	db           *gorm.DB
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	tenantRepo repository.TenantRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	bcryptCost int,
	db *gorm.DB,
) AuthFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthFlowImpl{
		tenantRepo:   tenantRepo,
		planRepo:     planRepo,
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		bcryptCost:   bcryptCost,
		db:           db,
	}
}

// Signup creates a tenant, its owner user, and the first session in one transaction
func (s *AuthFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthData, error) {
	planName := req.Plan
	if planName == "" {
		planName = models.PlanFree
	}

	var tenant *models.Tenant
	var user *models.User
	var tokens struct {
		access  string
		refresh string
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		plan, err := s.planRepo.ByName(txCtx, planName)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrPlanNotFound
		}

		// The email is unique per tenant, but a signup creates a fresh tenant,
		// so reusing an address across workspaces is allowed on purpose.
		tenant = &models.Tenant{
			UUID:           uuid.New(),
			Name:           req.TenantName,
			PlanID:         plan.ID,
			EmailResetDate: utils.UTCNow(),
			IsActive:       utils.ToPtr(true),
		}
		if req.Domain != "" {
			tenant.Domain = utils.ToPtr(strings.ToLower(req.Domain))
		}
		if err := s.tenantRepo.Save(txCtx, tenant); err != nil {
			return err
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return err
		}

		user = &models.User{
			UUID:         uuid.New(),
			TenantID:     tenant.ID,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        strings.ToLower(req.Email),
			PasswordHash: string(hashedPassword),
			Role:         models.RoleOwner,
			IsActive:     utils.ToPtr(true),
		}
		if err := s.userRepo.Save(txCtx, user); err != nil {
			return err
		}

		if err := s.tenantRepo.SetOwner(txCtx, tenant.ID, user.ID); err != nil {
			return err
		}

		tokens.access, tokens.refresh, err = s.tokenService.GenerateTokens(tenant.ID, user.ID, user.Role)
		if err != nil {
			return err
		}

		if err := s.createSession(txCtx, user.ID, tokens.access, tokens.refresh, metadata); err != nil {
			return err
		}

		tenant, err = s.tenantRepo.ByIDWithPlan(txCtx, tenant.ID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Tenant signup failed: %s", err.Error())
		_ = s.createAuditLog(ctx, nil, nil, models.AuditActionTenantSignup, errMsg, false, &errMsg, metadata)

		if isUniqueViolation(err) {
			return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", ErrEmailAlreadyExists)
		}
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Tenant signup completed: tenant %d, owner %d", tenant.ID, user.ID)
	_ = s.createAuditLog(ctx, &tenant.ID, &user.ID, models.AuditActionTenantSignup, msg, true, nil, metadata)

	return &dto.AuthData{
		User:    ToUserDTO(*user),
		Tenant:  ToTenantDTO(*tenant),
		Session: s.toSessionDTO(tokens.access, tokens.refresh),
	}, nil
}

// Login authenticates a user and issues a new session
func (s *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthData, error) {
	user, err := s.userRepo.ByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errMsg := fmt.Sprintf("Login failed for user %d: incorrect password", user.ID)
		_ = s.createAuditLog(ctx, &user.TenantID, &user.ID, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrIncorrectPassword)
	}

	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAccountInactive)
	}

	tenant, err := s.tenantRepo.ByIDWithPlan(ctx, user.TenantID)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrTenantNotFound)
	}
	if !utils.IsTrue(tenant.IsActive) {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrTenantInactive)
	}

	var tokens struct {
		access  string
		refresh string
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		tokens.access, tokens.refresh, err = s.tokenService.GenerateTokens(tenant.ID, user.ID, user.Role)
		if err != nil {
			return err
		}

		if err := s.createSession(txCtx, user.ID, tokens.access, tokens.refresh, metadata); err != nil {
			return err
		}

		return s.userRepo.UpdateLastLogin(txCtx, user.ID, utils.UTCNow())
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed for user %d: %s", user.ID, err.Error())
		_ = s.createAuditLog(ctx, &user.TenantID, &user.ID, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("Login successful: user %d", user.ID)
	_ = s.createAuditLog(ctx, &user.TenantID, &user.ID, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return &dto.AuthData{
		User:    ToUserDTO(*user),
		Tenant:  ToTenantDTO(*tenant),
		Session: s.toSessionDTO(tokens.access, tokens.refresh),
	}, nil
}

// RefreshToken rotates the token pair attached to a session
func (s *AuthFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.SessionDTO, error) {
	session, err := s.sessionRepo.ByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}
	if session == nil || !session.IsValid() {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", ErrSessionNotFound)
	}

	newAccess, newRefresh, err := s.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Old session is expired and a new record is written under the same
		// correlation ID so the rotation history stays queryable.
		if err := s.sessionRepo.ExpireSession(txCtx, session.ID); err != nil {
			return err
		}

		next := &models.UserSession{
			CorrelationID: session.CorrelationID,
			UserID:        session.UserID,
			SessionToken:  newAccess,
			RefreshToken:  &newRefresh,
			IPAddress:     session.IPAddress,
			UserAgent:     session.UserAgent,
			IsActive:      utils.ToPtr(true),
			ExpiresAt:     utils.UTCNow().Add(utils.SessionTimeout),
		}
		return s.sessionRepo.Save(txCtx, next)
	})

	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	result := s.toSessionDTO(newAccess, newRefresh)
	return &result, nil
}

// Logout revokes the current token and expires the session
func (s *AuthFlowImpl) Logout(ctx context.Context, actor Actor, sessionToken string, metadata *ClientMetadata) error {
	session, err := s.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if session == nil || session.UserID != actor.UserID {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", ErrSessionNotFound)
	}

	if err := s.sessionRepo.ExpireSession(ctx, session.ID); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	_ = s.tokenService.RevokeToken(sessionToken)

	msg := fmt.Sprintf("Logout: user %d", actor.UserID)
	_ = s.createAuditLog(ctx, &actor.TenantID, &actor.UserID, models.AuditActionLogout, msg, true, nil, metadata)

	return nil
}

// ChangePassword verifies the current password, stores the new hash, and
// expires every other session of the user
func (s *AuthFlowImpl) ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordData, error) {
	user, err := s.userRepo.ByID(ctx, actor.UserID)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}
	if user == nil || user.TenantID != actor.TenantID {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", ErrIncorrectPassword)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.userRepo.UpdatePassword(txCtx, user.ID, string(hashedPassword)); err != nil {
			return err
		}
		return s.sessionRepo.ExpireAllUserSessions(txCtx, user.ID)
	})

	if err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	changedAt := utils.UTCNow()
	msg := fmt.Sprintf("Password changed: user %d", user.ID)
	_ = s.createAuditLog(ctx, &actor.TenantID, &user.ID, models.AuditActionPasswordChanged, msg, true, nil, metadata)

	return &dto.ChangePasswordData{PasswordChangedAt: changedAt}, nil
}

// Private helper methods

func (s *AuthFlowImpl) createSession(ctx context.Context, userID uint, accessToken, refreshToken string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     utils.UTCNow().Add(utils.SessionTimeout),
	}

	return s.sessionRepo.Save(ctx, session)
}

func (s *AuthFlowImpl) toSessionDTO(accessToken, refreshToken string) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(utils.AccessTokenTTL / time.Second),
		CreatedAt:    utils.UTCNowRFC3339(),
	}
}

func (s *AuthFlowImpl) createAuditLog(ctx context.Context, tenantID, userID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		TenantID:     tenantID,
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return s.auditRepo.Save(ctx, audit)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
