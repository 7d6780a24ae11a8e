package controller

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"accelerator/models"
	"accelerator/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewLeadController(db *gorm.DB, logger *logrus.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger.WithField("component", "leads"),
	}
}

type leadInput struct {
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
	Phone       string `json:"phone"`
	Source      string `json:"source"`
}

// CreateLead adds a single lead from the admin console.
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.Lead
	if err := lc.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "A lead with this email already exists", nil)
	}

	source := input.Source
	if source == "" {
		source = models.LeadSourceManual
	}

	lead := models.Lead{
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Company:     input.Company,
		Title:       input.Title,
		Industry:    input.Industry,
		CompanySize: input.CompanySize,
		Phone:       input.Phone,
		Source:      source,
	}
	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads lists leads with filtering and pagination.
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 25
	}

	query := lc.DB.Model(&models.Lead{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if temp := c.Query("temperature"); temp != "" {
		query = query.Where("lead_temperature = ?", temp)
	}
	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", source)
	}
	if industry := c.Query("industry"); industry != "" {
		query = query.Where("industry = ?", industry)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company) LIKE ?",
			like, like, like, like,
		)
	}
	if minScore := c.QueryInt("min_score", -1); minScore >= 0 {
		query = query.Where("lead_score >= ?", minScore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", nil)
	}

	var leads []models.Lead
	if err := query.Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", nil)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLead returns one lead with its temperature history.
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := lc.DB.Preload("TemperatureHistory").First(&lead, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

type leadUpdateInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Company     *string `json:"company"`
	Title       *string `json:"title"`
	Industry    *string `json:"industry"`
	CompanySize *string `json:"company_size"`
	Phone       *string `json:"phone"`
	Status      *string `json:"status"`
}

// UpdateLead patches lead fields. Email is immutable; it is the dedup key.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := lc.DB.First(&lead, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	var input leadUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Company != nil {
		updates["company"] = *input.Company
	}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Industry != nil {
		updates["industry"] = *input.Industry
	}
	if input.CompanySize != nil {
		updates["company_size"] = *input.CompanySize
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Status != nil {
		if !validLeadStatus(*input.Status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead status", nil)
		}
		updates["status"] = *input.Status
	}

	if len(updates) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No fields to update", nil)
	}

	if err := lc.DB.Model(&lead).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", nil)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

type batchStatusInput struct {
	LeadIDs []uint `json:"lead_ids" validate:"required,min=1"`
	Status  string `json:"status" validate:"required"`
}

type batchResult struct {
	LeadID  uint   `json:"lead_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchUpdateStatus applies a status change to many leads, reporting
// per-lead results so one bad id does not fail the batch.
func (lc *LeadController) BatchUpdateStatus(c *fiber.Ctx) error {
	var input batchStatusInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if !validLeadStatus(input.Status) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead status", nil)
	}

	results := make([]batchResult, 0, len(input.LeadIDs))
	updated := 0
	for _, id := range input.LeadIDs {
		var lead models.Lead
		if err := lc.DB.First(&lead, id).Error; err != nil {
			results = append(results, batchResult{LeadID: id, Error: "lead not found"})
			continue
		}
		if err := lc.DB.Model(&lead).Update("status", input.Status).Error; err != nil {
			results = append(results, batchResult{LeadID: id, Error: "update failed"})
			continue
		}
		results = append(results, batchResult{LeadID: id, Success: true})
		updated++
	}

	lc.Logger.WithFields(logrus.Fields{
		"requested": len(input.LeadIDs),
		"updated":   updated,
	}).Info("batch status update")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"updated": updated,
		"failed":  len(input.LeadIDs) - updated,
		"results": results,
	}))
}

type importRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportLeads ingests a CSV upload. Expected header:
// email,first_name,last_name,company,title,industry,company_size,phone
// Rows with a missing or invalid email are reported per-line; existing
// emails are skipped rather than overwritten.
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Could not read uploaded file", nil)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV is empty or malformed", nil)
	}
	col := columnIndex(header)
	if _, ok := col["email"]; !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV must have an email column", nil)
	}

	var (
		imported  int
		skipped   int
		rowErrors []importRowError
	)

	line := 1
	for {
		line++
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			rowErrors = append(rowErrors, importRowError{Line: line, Message: "malformed row"})
			continue
		}

		email := strings.TrimSpace(cell(record, col, "email"))
		if email == "" {
			rowErrors = append(rowErrors, importRowError{Line: line, Message: "missing email"})
			continue
		}
		if err := checkmail.ValidateFormat(email); err != nil {
			rowErrors = append(rowErrors, importRowError{Line: line, Message: "invalid email: " + email})
			continue
		}

		var existing models.Lead
		if err := lc.DB.Where("email = ?", email).First(&existing).Error; err == nil {
			skipped++
			continue
		}

		lead := models.Lead{
			Email:       email,
			FirstName:   cell(record, col, "first_name"),
			LastName:    cell(record, col, "last_name"),
			Company:     cell(record, col, "company"),
			Title:       cell(record, col, "title"),
			Industry:    cell(record, col, "industry"),
			CompanySize: cell(record, col, "company_size"),
			Phone:       cell(record, col, "phone"),
			Source:      models.LeadSourceImport,
		}
		if err := lc.DB.Create(&lead).Error; err != nil {
			rowErrors = append(rowErrors, importRowError{Line: line, Message: "failed to save"})
			continue
		}
		imported++
	}

	lc.Logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
		"errors":   len(rowErrors),
	}).Info("lead import finished")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"imported": imported,
		"skipped":  skipped,
		"errors":   rowErrors,
	}))
}

// ExportLeads streams the current (filtered) lead list as CSV.
func (lc *LeadController) ExportLeads(c *fiber.Ctx) error {
	query := lc.DB.Model(&models.Lead{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if temp := c.Query("temperature"); temp != "" {
		query = query.Where("lead_temperature = ?", temp)
	}

	var leads []models.Lead
	if err := query.Order("created_at asc").Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", nil)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{
		"email", "first_name", "last_name", "company", "title",
		"industry", "company_size", "phone", "lead_score", "lead_temperature", "status", "source",
	})
	for _, l := range leads {
		_ = w.Write([]string{
			l.Email, l.FirstName, l.LastName, l.Company, l.Title,
			l.Industry, l.CompanySize, l.Phone,
			fmt.Sprintf("%d", l.LeadScore), l.LeadTemperature, l.Status, l.Source,
		})
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="leads.csv"`)
	return c.SendString(sb.String())
}

// GetLeadTimeline returns a lead's actions and outcomes merged into one
// chronological feed.
func (lc *LeadController) GetLeadTimeline(c *fiber.Ctx) error {
	leadID := utils.ParseUint(c.Params("id"))

	var lead models.Lead
	if err := lc.DB.First(&lead, leadID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	var actions []models.OutreachAction
	if err := lc.DB.Where("lead_id = ?", leadID).Order("sent_at asc").Find(&actions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch actions", nil)
	}
	var outcomes []models.OutreachOutcome
	if err := lc.DB.Where("lead_id = ?", leadID).Order("occurred_at asc").Find(&outcomes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch outcomes", nil)
	}
	var transitions []models.EnrollmentTransition
	if err := lc.DB.Where("lead_id = ?", leadID).Order("occurred_at asc").Find(&transitions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch transitions", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead":     lead,
		"timeline": mergeTimeline(actions, outcomes, transitions),
	}))
}

// TimelineEvent is one entry in a lead or enrollment activity feed.
type TimelineEvent struct {
	Kind       string      `json:"kind"` // action, outcome or transition
	OccurredAt time.Time   `json:"occurred_at"`
	Detail     interface{} `json:"detail"`
}

func mergeTimeline(actions []models.OutreachAction, outcomes []models.OutreachOutcome, transitions []models.EnrollmentTransition) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(actions)+len(outcomes)+len(transitions))
	for i := range actions {
		events = append(events, TimelineEvent{Kind: "action", OccurredAt: actions[i].SentAt, Detail: actions[i]})
	}
	for i := range outcomes {
		events = append(events, TimelineEvent{Kind: "outcome", OccurredAt: outcomes[i].OccurredAt, Detail: outcomes[i]})
	}
	for i := range transitions {
		events = append(events, TimelineEvent{Kind: "transition", OccurredAt: transitions[i].OccurredAt, Detail: transitions[i]})
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events
}

func validLeadStatus(s string) bool {
	switch s {
	case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusQualified,
		models.LeadStatusConverted, models.LeadStatusRemoved, models.LeadStatusDNC:
		return true
	}
	return false
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

func cell(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
