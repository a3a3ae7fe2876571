package controller

import (
	"log"
	"time"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{DB: db, Logger: logger}
}

// GetDashboardStats returns the headline numbers for the staff dashboard,
// scoped to the caller's book of business for non-admins.
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	scopeLeads := func(q *gorm.DB) *gorm.DB {
		if user.IsAdmin() {
			return q
		}
		return q.Where("assigned_agent_id = ?", user.ID)
	}
	scopeAgent := func(q *gorm.DB, col string) *gorm.DB {
		if user.IsAdmin() {
			return q
		}
		return q.Where(col+" = ?", user.ID)
	}

	leadsByStatus := make(map[string]int64)
	for _, status := range []string{
		models.LeadStatusNew,
		models.LeadStatusContacted,
		models.LeadStatusQuoted,
		models.LeadStatusConverted,
		models.LeadStatusLost,
	} {
		var n int64
		scopeLeads(dc.DB.Model(&models.Lead{})).Where("status = ?", status).Count(&n)
		leadsByStatus[status] = n
	}

	var clientCount int64
	scopeLeads(dc.DB.Model(&models.Client{})).Count(&clientCount)

	var expiringSoon int64
	scopeAgent(dc.DB.Model(&models.Policy{}), "agent_id").
		Where("status = ?", models.PolicyStatusActive).
		Where("expiration_date <= ?", time.Now().AddDate(0, 0, 30)).
		Count(&expiringSoon)

	startOfDay := time.Now().Truncate(24 * time.Hour)
	var tasksDueToday int64
	scopeAgent(dc.DB.Model(&models.Task{}), "assigned_to_id").
		Where("completed = ?", false).
		Where("due_at >= ? AND due_at < ?", startOfDay, startOfDay.Add(24*time.Hour)).
		Count(&tasksDueToday)

	var activePremium int64
	scopeAgent(dc.DB.Model(&models.Policy{}), "agent_id").
		Where("status = ?", models.PolicyStatusActive).
		Select("COALESCE(SUM(annual_premium), 0)").
		Scan(&activePremium)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"leads_by_status":           leadsByStatus,
		"client_count":              clientCount,
		"policies_expiring_30_days": expiringSoon,
		"tasks_due_today":           tasksDueToday,
		"active_premium_cents":      activePremium,
	}))
}
