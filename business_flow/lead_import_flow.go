// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// LeadImportFlow handles bulk lead import from spreadsheet files and the
// matching export. Both CSV and XLSX are accepted; the format is picked by
// file extension. The first row must be a header containing at least a
// 'name' column.
type LeadImportFlow interface {
	ImportLeads(ctx context.Context, actor Actor, filename string, file io.Reader, metadata *ClientMetadata) (*dto.ImportLeadsData, error)
	ExportLeads(ctx context.Context, actor Actor, req *dto.ListLeadsRequest) (string, []byte, error)
}

// LeadImportFlowImpl implements the lead import business flow
type LeadImportFlowImpl struct {
	leadRepo    repository.LeadRepository
	leadLogRepo repository.LeadLogRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewLeadImportFlow creates a new lead import flow instance
func NewLeadImportFlow(
	leadRepo repository.LeadRepository,
	leadLogRepo repository.LeadLogRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) LeadImportFlow {
	return &LeadImportFlowImpl{
		leadRepo:    leadRepo,
		leadLogRepo: leadLogRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// importedRow is one parsed spreadsheet row
type importedRow struct {
	name     string
	email    string
	phone    string
	mobile   string
	company  string
	position string
	website  string
	notes    string
}

// ImportLeads parses the uploaded file and creates all valid rows in one transaction
func (s *LeadImportFlowImpl) ImportLeads(ctx context.Context, actor Actor, filename string, file io.Reader, metadata *ClientMetadata) (*dto.ImportLeadsData, error) {
	if file == nil {
		return nil, NewBusinessError("IMPORT_FAILED", "Import file is required", ErrImportFileUnreadable)
	}

	var rows []importedRow
	var rowErrors []string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, rowErrors, err = parseCSVLeads(file)
	case ".xlsx":
		rows, rowErrors, err = parseXLSXLeads(file)
	default:
		return nil, NewBusinessError("IMPORT_FAILED", "Unsupported file format, use .csv or .xlsx", ErrImportFileUnreadable)
	}

	if err != nil {
		return nil, NewBusinessError("IMPORT_FAILED", "Import file could not be parsed", err)
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("IMPORT_FAILED", "Import file has no data rows", ErrImportNoRows)
	}
	if len(rows) > utils.MaxImportRows {
		return nil, NewBusinessError("IMPORT_FAILED",
			fmt.Sprintf("Import file exceeds %d rows", utils.MaxImportRows), ErrImportTooManyRows)
	}

	source := models.LeadSourceImport
	leads := make([]*models.Lead, 0, len(rows))
	for _, row := range rows {
		lead := &models.Lead{
			UUID:     uuid.New(),
			TenantID: actor.TenantID,
			Name:     row.name,
			Status:   models.LeadStatusNew,
			Source:   &source,
		}
		if row.email != "" {
			lead.Email = utils.ToPtr(row.email)
		}
		if row.phone != "" {
			lead.Phone = utils.ToPtr(row.phone)
		}
		if row.mobile != "" {
			lead.Mobile = utils.ToPtr(row.mobile)
		}
		if row.company != "" {
			lead.Company = utils.ToPtr(row.company)
		}
		if row.position != "" {
			lead.Position = utils.ToPtr(row.position)
		}
		if row.website != "" {
			lead.Website = utils.ToPtr(row.website)
		}
		if row.notes != "" {
			lead.Notes = utils.ToPtr(row.notes)
		}
		leads = append(leads, lead)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.leadRepo.SaveBatch(txCtx, leads); err != nil {
			return err
		}

		logs := make([]*models.LeadLog, 0, len(leads))
		for _, lead := range leads {
			logs = append(logs, &models.LeadLog{
				LeadID: lead.ID,
				UserID: &actor.UserID,
				Action: models.LeadActionImported,
			})
		}
		return s.leadLogRepo.SaveBatch(txCtx, logs)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Lead import failed: %s", err.Error())
		_ = s.createAuditLog(ctx, actor, models.AuditActionLeadImported, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("IMPORT_FAILED", "Lead import failed", err)
	}

	msg := fmt.Sprintf("Leads imported: %d created, %d skipped", len(leads), len(rowErrors))
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadImported, msg, true, nil, metadata)

	return &dto.ImportLeadsData{
		Imported: len(leads),
		Skipped:  len(rowErrors),
		Errors:   rowErrors,
	}, nil
}

// ExportLeads writes the tenant's leads into an XLSX workbook
func (s *LeadImportFlowImpl) ExportLeads(ctx context.Context, actor Actor, req *dto.ListLeadsRequest) (string, []byte, error) {
	filter := models.LeadFilter{TenantID: &actor.TenantID}
	if req != nil {
		if req.Status != "" {
			filter.Status = &req.Status
		}
		if req.Search != "" {
			filter.Search = &req.Search
		}
	}

	leads, err := s.leadRepo.ByFilter(ctx, filter, "created_at ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Lead export failed", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Leads"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"name", "email", "phone", "mobile", "company", "position", "website", "status", "source", "loss_reason", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, lead := range leads {
		record := []string{
			lead.Name,
			deref(lead.Email),
			deref(lead.Phone),
			deref(lead.Mobile),
			deref(lead.Company),
			deref(lead.Position),
			deref(lead.Website),
			lead.Status,
			deref(lead.Source),
			deref(lead.LossReason),
			lead.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Lead export failed", err)
	}

	filename := fmt.Sprintf("leads_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// Private helper methods

func parseCSVLeads(file io.Reader) ([]importedRow, []string, error) {
	reader := csv.NewReader(bufio.NewReader(file))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, ErrImportFileUnreadable
	}

	cols := headerIndex(header)
	if _, ok := cols["name"]; !ok {
		return nil, nil, fmt.Errorf("missing 'name' column: %w", ErrImportFileUnreadable)
	}

	var rows []importedRow
	var rowErrors []string
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: unreadable", line))
			continue
		}

		row, ok := rowFromRecord(rec, cols)
		if !ok {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: name is required", line))
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

func parseXLSXLeads(file io.Reader) ([]importedRow, []string, error) {
	xl, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, ErrImportFileUnreadable
	}
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	records, err := xl.GetRows(sheet)
	if err != nil {
		return nil, nil, ErrImportFileUnreadable
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	cols := headerIndex(records[0])
	if _, ok := cols["name"]; !ok {
		return nil, nil, fmt.Errorf("missing 'name' column: %w", ErrImportFileUnreadable)
	}

	var rows []importedRow
	var rowErrors []string
	for i, rec := range records[1:] {
		row, ok := rowFromRecord(rec, cols)
		if !ok {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: name is required", i+2))
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func rowFromRecord(rec []string, cols map[string]int) (importedRow, bool) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	row := importedRow{
		name:     field("name"),
		email:    field("email"),
		phone:    field("phone"),
		mobile:   field("mobile"),
		company:  field("company"),
		position: field("position"),
		website:  field("website"),
		notes:    field("notes"),
	}

	if row.name == "" {
		return importedRow{}, false
	}
	return row, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *LeadImportFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
