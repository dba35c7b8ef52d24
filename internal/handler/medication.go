package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/adherence"
	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/metrics"
	"github.com/iliyamo/medication-adherence/internal/middleware"
	"github.com/iliyamo/medication-adherence/internal/model"
	"github.com/iliyamo/medication-adherence/internal/queue"
	"github.com/iliyamo/medication-adherence/internal/repository"
	"github.com/iliyamo/medication-adherence/internal/service"
	"github.com/iliyamo/medication-adherence/internal/validation"
)

const (
	defaultAdherenceDays = 30
	maxAdherenceDays     = 365
	publishTimeout       = 3 * time.Second
)

// MedicationHandler serves /api/medications. Every operation is scoped to
// the caller; another user's medication answers 404.
type MedicationHandler struct {
	Meds      *repository.MedicationRepo
	Logs      *repository.MedicationLogRepo
	Publisher service.Publisher
	Now       func() time.Time
	errorResponder
}

func NewMedicationHandler(meds *repository.MedicationRepo, logs *repository.MedicationLogRepo, pub service.Publisher, debug bool) *MedicationHandler {
	if pub == nil {
		pub = service.NopPublisher{}
	}
	return &MedicationHandler{
		Meds:           meds,
		Logs:           logs,
		Publisher:      pub,
		Now:            time.Now,
		errorResponder: errorResponder{Debug: debug},
	}
}

func (h *MedicationHandler) today() model.Date {
	return model.DateOf(h.Now().UTC())
}

// ----- DTOs -----

type medicationReq struct {
	Name         string  `json:"name" validate:"min=1,max=200" message:"Medication name is required and must be less than 200 characters"`
	Dosage       string  `json:"dosage" validate:"min=1,max=100" message:"Dosage is required and must be less than 100 characters"`
	Frequency    string  `json:"frequency" validate:"frequency" message:"Invalid frequency value"`
	Instructions *string `json:"instructions" validate:"omitempty,max=500" message:"Instructions must be less than 500 characters"`
}

func (r *medicationReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Dosage = strings.TrimSpace(r.Dosage)
	if r.Instructions != nil {
		s := strings.TrimSpace(*r.Instructions)
		if s == "" {
			r.Instructions = nil
		} else {
			r.Instructions = &s
		}
	}
}

type markTakenReq struct {
	Date  string  `json:"date" validate:"required,isodate" message_required:"Date is required" message_isodate:"Invalid date format. Use YYYY-MM-DD"`
	Notes *string `json:"notes" validate:"omitempty,max=500" message:"Notes must be less than 500 characters"`
}

type medicationResp struct {
	ID           uint64          `json:"id"`
	UserID       uint64          `json:"user_id"`
	Name         string          `json:"name"`
	Dosage       string          `json:"dosage"`
	Frequency    model.Frequency `json:"frequency"`
	Instructions *string         `json:"instructions"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	TakenDates   []model.Date    `json:"taken_dates"`
}

func toMedicationResp(m *model.Medication, taken []model.Date) medicationResp {
	if taken == nil {
		taken = []model.Date{}
	}
	return medicationResp{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Frequency:    m.Frequency,
		Instructions: m.Instructions,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		TakenDates:   taken,
	}
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Medication not found"})
}

// List returns the caller's medications, newest first, each with every day
// it was marked taken.
func (h *MedicationHandler) List(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	ctx, cancel := dbCtx(c)
	defer cancel()

	meds, err := h.Meds.ListByOwner(ctx, me.ID)
	if err != nil {
		return h.internal(c, "Failed to fetch medications", err)
	}
	taken, err := h.Logs.TakenDatesByUser(ctx, me.ID, nil, nil)
	if err != nil {
		return h.internal(c, "Failed to fetch medications", err)
	}

	out := make([]medicationResp, 0, len(meds))
	for _, m := range meds {
		out = append(out, toMedicationResp(m, adherence.NewDateSet(taken[m.ID]...).Sorted()))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Medications retrieved successfully",
		"data":    out,
	})
}

// Create adds a medication for the caller.
func (h *MedicationHandler) Create(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	var req medicationReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationFailed(c, verr)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	m := &model.Medication{
		UserID:       me.ID,
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    model.Frequency(req.Frequency),
		Instructions: req.Instructions,
	}
	if err := h.Meds.Create(ctx, m); err != nil {
		return h.internal(c, "Failed to create medication", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Medication created successfully",
		"data":    toMedicationResp(m, nil),
	})
}

// Update replaces the editable fields of one of the caller's medications.
func (h *MedicationHandler) Update(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	var req medicationReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationFailed(c, verr)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	m := &model.Medication{
		ID:           id,
		UserID:       me.ID,
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    model.Frequency(req.Frequency),
		Instructions: req.Instructions,
	}
	err := h.Meds.Update(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return h.internal(c, "Failed to update medication", err)
	}

	logs, err := h.Logs.ListByMedication(ctx, m.ID)
	if err != nil {
		return h.internal(c, "Failed to retrieve updated medication", err)
	}
	var taken adherence.DateSet
	for _, l := range logs {
		taken.Add(l.TakenDate)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Medication updated successfully",
		"data":    toMedicationResp(m, taken.Sorted()),
	})
}

// Delete removes one of the caller's medications with its logs.
func (h *MedicationHandler) Delete(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	err := h.Meds.DeleteByIDAndOwner(ctx, id, me.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return h.internal(c, "Failed to delete medication", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Medication deleted successfully"})
}

// MarkTaken records that the medication was taken on the given day. A second
// call for the same day overwrites the first.
func (h *MedicationHandler) MarkTaken(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	var req markTakenReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Notes != nil {
		s := strings.TrimSpace(*req.Notes)
		req.Notes = &s
		if s == "" {
			req.Notes = nil
		}
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		if fe, ok := verr.Lookup("date"); ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": fe.Message})
		}
		return validationFailed(c, verr)
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid date format. Use YYYY-MM-DD"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	med, err := h.Meds.GetByIDAndOwner(ctx, id, me.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return h.internal(c, "Database error", err)
	}

	entry := &model.MedicationLog{
		MedicationID: med.ID,
		UserID:       me.ID,
		TakenDate:    day,
		TakenAt:      h.Now().UTC(),
		Notes:        req.Notes,
	}
	if err := h.Logs.Upsert(ctx, entry); err != nil {
		return h.internal(c, "Failed to mark medication as taken", err)
	}
	metrics.RecordDoseMarked()
	h.publishTaken(c.Request().Context(), med, entry)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Medication marked as taken successfully",
		"data": echo.Map{
			"medication_id": med.ID,
			"taken_date":    entry.TakenDate,
			"taken_at":      entry.TakenAt,
		},
	})
}

// publishTaken is best effort: a broker failure is logged and counted, the
// dose stays recorded.
func (h *MedicationHandler) publishTaken(ctx context.Context, med *model.Medication, entry *model.MedicationLog) {
	if _, off := h.Publisher.(service.NopPublisher); off {
		metrics.RecordEventSkipped()
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := h.Publisher.PublishMedicationTaken(ctx, queue.MedicationTakenEvent{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Dosage:         med.Dosage,
		UserID:         entry.UserID,
		TakenDate:      entry.TakenDate.String(),
		TakenAt:        entry.TakenAt,
	})
	metrics.RecordEventPublish(err)
	if err != nil {
		logging.Warn().Err(err).Uint64("medication_id", med.ID).Msg("publish medication.taken failed")
	}
}

// Adherence scores the caller's medications over the last `days` days
// (default 30, at most 365).
func (h *MedicationHandler) Adherence(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	days := defaultAdherenceDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAdherenceDays {
			return validationFailed(c, &validation.RequestValidationError{Fields: []validation.FieldError{{
				Field:   "days",
				Message: "days must be an integer between 1 and 365",
				Value:   raw,
			}}})
		}
		days = n
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	report, err := loadReport(ctx, h.Meds, h.Logs, me.ID, days, h.today())
	if err != nil {
		return h.internal(c, "Failed to calculate adherence", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Adherence statistics retrieved successfully",
		"data":    report,
	})
}

// loadReport reads the user's medications and their taken days inside the
// window and scores them.
func loadReport(ctx context.Context, meds *repository.MedicationRepo, logs *repository.MedicationLogRepo, userID uint64, days int, today model.Date) (adherence.Report, error) {
	inputs, err := loadInputs(ctx, meds, logs, userID, days, today)
	if err != nil {
		return adherence.Report{}, err
	}
	return adherence.Compute(inputs, days, today), nil
}

func loadInputs(ctx context.Context, meds *repository.MedicationRepo, logs *repository.MedicationLogRepo, userID uint64, days int, today model.Date) ([]adherence.Medication, error) {
	list, err := meds.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	start, end := adherence.Window(today, days)
	taken, err := logs.TakenDatesByUser(ctx, userID, &start, &end)
	if err != nil {
		return nil, err
	}
	out := make([]adherence.Medication, 0, len(list))
	for _, m := range list {
		out = append(out, adherence.Medication{
			ID:        m.ID,
			Name:      m.Name,
			Frequency: m.Frequency,
			Taken:     adherence.NewDateSet(taken[m.ID]...),
		})
	}
	return out, nil
}
