// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamFlow handles team membership inside a tenant. Only owners and admins
// may invite, update, or deactivate members; the plan's user limit applies.
type TeamFlow interface {
	InviteUser(ctx context.Context, actor Actor, req *dto.InviteUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	ListTeam(ctx context.Context, actor Actor) (*dto.ListTeamData, error)
	UpdateUser(ctx context.Context, actor Actor, userUUID string, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	DeactivateUser(ctx context.Context, actor Actor, userUUID string, metadata *ClientMetadata) error
}

// TeamFlowImpl implements the team business flow
type TeamFlowImpl struct {
	userRepo    repository.UserRepository
	tenantRepo  repository.TenantRepository
	sessionRepo repository.UserSessionRepository
	auditRepo   repository.AuditLogRepository
	bcryptCost  int
	db          *gorm.DB
}

// NewTeamFlow creates a new team flow instance
func NewTeamFlow(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	bcryptCost int,
	db *gorm.DB,
) TeamFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &TeamFlowImpl{
		userRepo:    userRepo,
		tenantRepo:  tenantRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		bcryptCost:  bcryptCost,
		db:          db,
	}
}

// InviteUser creates a new member in the actor's tenant
func (s *TeamFlowImpl) InviteUser(ctx context.Context, actor Actor, req *dto.InviteUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if !actor.CanManageTeam() {
		return nil, ErrPermissionDenied
	}

	email := strings.ToLower(req.Email)

	var user *models.User

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.userRepo.ByTenantAndEmail(txCtx, actor.TenantID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		tenant, err := s.tenantRepo.ByIDWithPlan(txCtx, actor.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return ErrTenantNotFound
		}

		// Plan user limit; NULL means unlimited.
		if tenant.Plan.MaxUsers != nil {
			count, err := s.userRepo.Count(txCtx, models.UserFilter{TenantID: &actor.TenantID})
			if err != nil {
				return err
			}
			if count >= int64(*tenant.Plan.MaxUsers) {
				return NewBusinessError("USER_LIMIT_REACHED",
					fmt.Sprintf("Plan allows at most %d users", *tenant.Plan.MaxUsers), nil)
			}
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return err
		}

		user = &models.User{
			UUID:         uuid.New(),
			TenantID:     actor.TenantID,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        email,
			Phone:        req.Phone,
			PasswordHash: string(hashedPassword),
			Role:         req.Role,
			IsActive:     utils.ToPtr(true),
		}
		return s.userRepo.Save(txCtx, user)
	})

	if err != nil {
		if IsEmailAlreadyExists(err) {
			return nil, err
		}
		return nil, NewBusinessError("USER_INVITE_FAILED", "User invite failed", err)
	}

	msg := fmt.Sprintf("User invited: %d with role %s", user.ID, user.Role)
	_ = s.createAuditLog(ctx, actor, models.AuditActionUserInvited, msg, true, nil, metadata)

	result := ToUserDTO(*user)
	return &result, nil
}

// ListTeam returns every member of the actor's tenant
func (s *TeamFlowImpl) ListTeam(ctx context.Context, actor Actor) (*dto.ListTeamData, error) {
	users, err := s.userRepo.ListByTenant(ctx, actor.TenantID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("TEAM_LIST_FAILED", "Team listing failed", err)
	}

	data := &dto.ListTeamData{Users: make([]dto.UserDTO, 0, len(users))}
	for _, user := range users {
		data.Users = append(data.Users, ToUserDTO(*user))
	}

	return data, nil
}

// UpdateUser edits a member's profile or role
func (s *TeamFlowImpl) UpdateUser(ctx context.Context, actor Actor, userUUID string, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if !actor.CanManageTeam() {
		return nil, ErrPermissionDenied
	}

	user, err := s.findMember(ctx, actor, userUUID)
	if err != nil {
		return nil, err
	}

	// The owner role is fixed; ownership does not move through this path.
	if user.IsOwner() && req.Role != nil {
		return nil, ErrPermissionDenied
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Role != nil {
		user.Role = *req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("USER_UPDATE_FAILED", "User update failed", err)
	}

	msg := fmt.Sprintf("User updated: %d", user.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionUserUpdated, msg, true, nil, metadata)

	result := ToUserDTO(*user)
	return &result, nil
}

// DeactivateUser disables a member and expires their sessions
func (s *TeamFlowImpl) DeactivateUser(ctx context.Context, actor Actor, userUUID string, metadata *ClientMetadata) error {
	if !actor.CanManageTeam() {
		return ErrPermissionDenied
	}

	user, err := s.findMember(ctx, actor, userUUID)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return ErrCannotDeactivateSelf
	}
	if user.IsOwner() {
		return ErrPermissionDenied
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		user.IsActive = utils.ToPtr(false)
		if err := s.userRepo.Update(txCtx, user); err != nil {
			return err
		}
		return s.sessionRepo.ExpireAllUserSessions(txCtx, user.ID)
	})

	if err != nil {
		return NewBusinessError("USER_DEACTIVATE_FAILED", "User deactivation failed", err)
	}

	msg := fmt.Sprintf("User deactivated: %d", user.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionUserDeactivated, msg, true, nil, metadata)

	return nil
}

// Private helper methods

func (s *TeamFlowImpl) findMember(ctx context.Context, actor Actor, userUUID string) (*models.User, error) {
	user, err := s.userRepo.ByUUID(ctx, userUUID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "User fetch failed", err)
	}
	if user == nil || user.TenantID != actor.TenantID {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *TeamFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		TenantID:     &actor.TenantID,
		UserID:       &actor.UserID,
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
