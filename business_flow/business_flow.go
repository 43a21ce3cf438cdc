// Package businessflow contains the business logic for the application.
package businessflow

import (
	"encoding/json"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
)

const RequestIDKey = "X-Request-ID"

// Actor identifies who is performing an operation. Every flow method takes
// an Actor so tenant scoping and role checks happen in one place.
type Actor struct {
	TenantID uint
	UserID   uint
	Role     string
}

// IsOwner reports whether the actor has the owner role
func (a Actor) IsOwner() bool {
	return a.Role == models.RoleOwner
}

// IsAgent reports whether the actor has the agent role
func (a Actor) IsAgent() bool {
	return a.Role == models.RoleAgent
}

// CanManageTeam reports whether the actor may invite and manage users
func (a Actor) CanManageTeam() bool {
	return a.Role == models.RoleOwner || a.Role == models.RoleAdmin
}

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// ToUserDTO converts a user model to its API representation
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:        user.ID,
		UUID:      user.UUID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: formatTime(user.CreatedAt),
	}
}

// ToTenantDTO converts a tenant model to its API representation
func ToTenantDTO(tenant models.Tenant) dto.TenantDTO {
	plan := tenant.Plan.Name
	return dto.TenantDTO{
		ID:        tenant.ID,
		UUID:      tenant.UUID.String(),
		Name:      tenant.Name,
		Domain:    tenant.Domain,
		Plan:      plan,
		IsActive:  tenant.IsActive,
		CreatedAt: formatTime(tenant.CreatedAt),
	}
}

// ToLeadDTO converts a lead model to its API representation
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	d := dto.LeadDTO{
		ID:          lead.ID,
		UUID:        lead.UUID.String(),
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Mobile:      lead.Mobile,
		Company:     lead.Company,
		Position:    lead.Position,
		Address:     lead.Address,
		Website:     lead.Website,
		Source:      lead.Source,
		Notes:       lead.Notes,
		Status:      lead.Status,
		OwnerID:     lead.UserID,
		LossReason:  lead.LossReason,
		CapturedAt:  formatTimePtr(lead.CapturedAt),
		ConvertedAt: formatTimePtr(lead.ConvertedAt),
		CreatedAt:   formatTime(lead.CreatedAt),
		UpdatedAt:   formatTime(lead.UpdatedAt),
	}

	if lead.UserID != nil && lead.User != nil {
		name := lead.User.FullName()
		d.OwnerName = &name
	}

	return d
}

// ToLeadLogDTO converts a lead log entry to its API representation
func ToLeadLogDTO(log models.LeadLog) dto.LeadLogDTO {
	d := dto.LeadLogDTO{
		ID:        log.ID,
		Action:    log.Action,
		UserID:    log.UserID,
		CreatedAt: formatTime(log.CreatedAt),
	}

	if len(log.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(log.Details, &details); err == nil {
			d.Details = details
		}
	}

	return d
}

// ToContactDTO converts a contact model to its API representation
func ToContactDTO(contact models.Contact) dto.ContactDTO {
	d := dto.ContactDTO{
		ID:        contact.ID,
		UUID:      contact.UUID.String(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Mobile:    contact.Mobile,
		Position:  contact.Position,
		Address:   contact.Address,
		CompanyID: contact.CompanyID,
		LeadID:    contact.LeadID,
		Notes:     contact.Notes,
		CreatedAt: formatTime(contact.CreatedAt),
		UpdatedAt: formatTime(contact.UpdatedAt),
	}

	if contact.Company != nil {
		d.CompanyName = &contact.Company.Name
	}

	return d
}

// ToCompanyDTO converts a company model to its API representation
func ToCompanyDTO(company models.Company) dto.CompanyDTO {
	return dto.CompanyDTO{
		ID:        company.ID,
		UUID:      company.UUID.String(),
		Name:      company.Name,
		Website:   company.Website,
		Phone:     company.Phone,
		Industry:  company.Industry,
		Address:   company.Address,
		Notes:     company.Notes,
		CreatedAt: formatTime(company.CreatedAt),
		UpdatedAt: formatTime(company.UpdatedAt),
	}
}

// ToDealDTO converts a deal model to its API representation
func ToDealDTO(deal models.Deal) dto.DealDTO {
	d := dto.DealDTO{
		ID:              deal.ID,
		UUID:            deal.UUID.String(),
		Title:           deal.Title,
		Stage:           deal.Stage,
		Value:           deal.Value,
		Currency:        deal.Currency,
		ContactID:       deal.ContactID,
		CompanyID:       deal.CompanyID,
		OwnerID:         deal.UserID,
		ExpectedCloseAt: formatTimePtr(deal.ExpectedCloseAt),
		ClosedAt:        formatTimePtr(deal.ClosedAt),
		Notes:           deal.Notes,
		CreatedAt:       formatTime(deal.CreatedAt),
		UpdatedAt:       formatTime(deal.UpdatedAt),
	}

	if deal.Contact.ID != 0 {
		d.ContactName = &deal.Contact.Name
	}

	return d
}

// ToProposalDTO converts a proposal model to its API representation
func ToProposalDTO(proposal models.Proposal) dto.ProposalDTO {
	return dto.ProposalDTO{
		ID:          proposal.ID,
		UUID:        proposal.UUID.String(),
		DealID:      proposal.DealID,
		Title:       proposal.Title,
		Body:        proposal.Body,
		Amount:      proposal.Amount,
		Status:      proposal.Status,
		SentAt:      formatTimePtr(proposal.SentAt),
		RespondedAt: formatTimePtr(proposal.RespondedAt),
		CreatedAt:   formatTime(proposal.CreatedAt),
		UpdatedAt:   formatTime(proposal.UpdatedAt),
	}
}

// ToTaskDTO converts a task model to its API representation
func ToTaskDTO(task models.Task) dto.TaskDTO {
	return dto.TaskDTO{
		ID:          task.ID,
		UUID:        task.UUID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		AssigneeID:  task.AssigneeID,
		LeadID:      task.LeadID,
		ContactID:   task.ContactID,
		DealID:      task.DealID,
		DueAt:       formatTimePtr(task.DueAt),
		CompletedAt: formatTimePtr(task.CompletedAt),
		CreatedAt:   formatTime(task.CreatedAt),
		UpdatedAt:   formatTime(task.UpdatedAt),
	}
}

// ToNotificationDTO converts a notification model to its API representation
func ToNotificationDTO(n models.Notification) dto.NotificationDTO {
	return dto.NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    formatTimePtr(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}
