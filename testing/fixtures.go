// Package testing provides test utilities and database setup for testing the CRM platform
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestPlan creates a plan with the given name and monthly email cap.
// A nil cap means unlimited emails.
func (tf *TestFixtures) CreateTestPlan(name string, maxEmailsMonth *int) (*models.Plan, error) {
	plan := &models.Plan{
		Name:           name,
		DisplayName:    name,
		PriceMonthly:   0,
		MaxUsers:       utils.ToPtr(25),
		MaxLeads:       utils.ToPtr(10000),
		MaxEmailsMonth: maxEmailsMonth,
		IsActive:       utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(plan).Error; err != nil {
		return nil, fmt.Errorf("failed to create test plan: %w", err)
	}

	return plan, nil
}

// CreateTestTenant creates a tenant on the given plan with a fresh usage counter
func (tf *TestFixtures) CreateTestTenant(planID uint) (*models.Tenant, error) {
	tenant := &models.Tenant{
		UUID:            uuid.New(),
		Name:            fmt.Sprintf("Test Tenant %d", mrand.Intn(1000000)),
		PlanID:          planID,
		EmailUsageCount: 0,
		EmailResetDate:  utils.UTCNow(),
		EmailWarned90:   utils.ToPtr(false),
		IsActive:        utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestUser creates an active user with the given role inside the tenant
func (tf *TestFixtures) CreateTestUser(tenantID uint, role string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := mrand.Intn(100000000)

	user := &models.User{
		UUID:         uuid.New(),
		TenantID:     tenantID,
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        fmt.Sprintf("jane.doe.%d@example.com", suffix),
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestLead creates a lead in the given status, owned by userID when set
func (tf *TestFixtures) CreateTestLead(tenantID uint, status string, userID *uint) (*models.Lead, error) {
	suffix := mrand.Intn(100000000)
	email := fmt.Sprintf("lead.%d@example.com", suffix)

	lead := &models.Lead{
		UUID:     uuid.New(),
		TenantID: tenantID,
		Name:     fmt.Sprintf("Test Lead %d", suffix),
		Email:    &email,
		Source:   utils.ToPtr(models.LeadSourceManual),
		Status:   status,
		UserID:   userID,
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}

// CreateTestContact creates a contact for the tenant
func (tf *TestFixtures) CreateTestContact(tenantID uint, companyID *uint) (*models.Contact, error) {
	suffix := mrand.Intn(100000000)
	email := fmt.Sprintf("contact.%d@example.com", suffix)

	contact := &models.Contact{
		UUID:      uuid.New(),
		TenantID:  tenantID,
		Name:      fmt.Sprintf("Test Contact %d", suffix),
		Email:     &email,
		CompanyID: companyID,
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}

	return contact, nil
}

// CreateTestDeal creates an open deal tied to the given contact
func (tf *TestFixtures) CreateTestDeal(tenantID, contactID, userID uint, stage string, value int64) (*models.Deal, error) {
	deal := &models.Deal{
		UUID:      uuid.New(),
		TenantID:  tenantID,
		ContactID: contactID,
		UserID:    userID,
		Title:     fmt.Sprintf("Test Deal %d", mrand.Intn(1000000)),
		Stage:     stage,
		Value:     value,
	}

	if err := tf.DB.DB.Create(deal).Error; err != nil {
		return nil, fmt.Errorf("failed to create test deal: %w", err)
	}

	return deal, nil
}

// CreateTestSession creates an active session for the user
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(tenantID, userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		TenantID:    tenantID,
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}

// GenerateSecureToken returns a random URL-safe token of the given byte length
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
