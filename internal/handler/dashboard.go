package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/medication-adherence/internal/adherence"
	"github.com/iliyamo/medication-adherence/internal/middleware"
	"github.com/iliyamo/medication-adherence/internal/model"
	"github.com/iliyamo/medication-adherence/internal/repository"
)

const activityLimit = 10

// DashboardHandler serves /api/dashboard. Caretakers get placeholder
// figures until patient links are used.
type DashboardHandler struct {
	Meds *repository.MedicationRepo
	Logs *repository.MedicationLogRepo
	Now  func() time.Time
	errorResponder
}

func NewDashboardHandler(meds *repository.MedicationRepo, logs *repository.MedicationLogRepo, debug bool) *DashboardHandler {
	return &DashboardHandler{Meds: meds, Logs: logs, Now: time.Now, errorResponder: errorResponder{Debug: debug}}
}

type patientStats struct {
	TotalMedications int     `json:"totalMedications"`
	AdherenceRate    float64 `json:"adherenceRate"`
	TodaysDue        int     `json:"todaysDue"`
}

type caretakerStats struct {
	TotalPatients     int     `json:"totalPatients"`
	AverageAdherence  float64 `json:"averageAdherence"`
	MissedDoses       int     `json:"missedDoses"`
	ActiveMedications int     `json:"activeMedications"`
}

type activityItem struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
}

// Stats summarizes the caller's last 30 days.
func (h *DashboardHandler) Stats(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	if me.Role != model.RolePatient {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Caretaker dashboard statistics",
			"data":    caretakerStats{},
		})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	today := model.DateOf(h.Now().UTC())
	inputs, err := loadInputs(ctx, h.Meds, h.Logs, me.ID, adherence.DashboardDays, today)
	if err != nil {
		return h.internal(c, "Failed to load dashboard statistics", err)
	}
	report := adherence.Compute(inputs, adherence.DashboardDays, today)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Dashboard statistics retrieved successfully",
		"data": patientStats{
			TotalMedications: len(inputs),
			AdherenceRate:    report.OverallRate,
			TodaysDue:        adherence.DueToday(inputs, today),
		},
	})
}

// Activity lists the caller's latest recorded doses.
func (h *DashboardHandler) Activity(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	if me.Role != model.RolePatient {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Caretaker activity retrieved successfully",
			"data":    []activityItem{},
		})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	recent, err := h.Logs.Recent(ctx, me.ID, activityLimit)
	if err != nil {
		return h.internal(c, "Failed to fetch recent activity", err)
	}
	out := make([]activityItem, 0, len(recent))
	for _, a := range recent {
		out = append(out, activityItem{
			Description: "Took " + a.MedicationName,
			Timestamp:   a.TakenAt.UTC(),
			Type:        "medication_taken",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Recent activity retrieved successfully",
		"data":    out,
	})
}
