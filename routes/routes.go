package routes

import (
	"log"
	"os"

	controller "brokercrm/controllers"
	"brokercrm/middleware"
	"brokercrm/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// SetupAuthRoutes registers both realms' auth endpoints. The two login
// endpoints share one rate limiter; everything else on /api is guarded per
// resource group.
func SetupAuthRoutes(api fiber.Router) {
	loginLimiter := middleware.LoginRateLimiter()

	// Staff realm
	api.Post("/login", loginLimiter, controller.StaffLogin)
	api.Get("/user", middleware.RequireStaff(), controller.GetCurrentUser)
	api.Post("/change-password", middleware.RequireStaff(), controller.ChangePassword)

	// Portal realm. /client/login must stay public; the rest of /client is
	// registered through the guarded group in SetupPortalRoutes.
	api.Post("/client/login", loginLimiter, controller.PortalLogin)

	// Logout destroys whatever session the cookie names, any realm
	api.Post("/logout", controller.Logout)
}

// SetupPortalRoutes registers the client-portal views.
func SetupPortalRoutes(api fiber.Router, db *gorm.DB) {
	portalController := controller.NewPortalController(db, log.New(os.Stdout, "PORTAL: ", log.LstdFlags))

	portal := api.Group("/client", middleware.RequireClient())
	portal.Get("/info", controller.GetPortalInfo)
	portal.Get("/policies", portalController.GetMyPolicies)
	portal.Get("/documents", portalController.GetMyDocuments)
	portal.Get("/documents/:id/download", portalController.DownloadMyDocument)
}

// SetupStaffRoutes registers the staff CRM surface.
func SetupStaffRoutes(api fiber.Router, db *gorm.DB) {
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	clientController := controller.NewClientController(db, log.New(os.Stdout, "CLIENT: ", log.LstdFlags))
	policyController := controller.NewPolicyController(db, log.New(os.Stdout, "POLICY: ", log.LstdFlags))
	quoteController := controller.NewQuoteController(db, log.New(os.Stdout, "QUOTE: ", log.LstdFlags))
	commissionController := controller.NewCommissionController(db, log.New(os.Stdout, "COMMISSION: ", log.LstdFlags))
	documentController := controller.NewDocumentController(db, log.New(os.Stdout, "DOCUMENT: ", log.LstdFlags))
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags))
	calendarController := controller.NewCalendarController(db, log.New(os.Stdout, "CALENDAR: ", log.LstdFlags))
	templateController := controller.NewTemplateController(db, log.New(os.Stdout, "TEMPLATE: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))

	staff := middleware.RequireStaff()

	// Lead routes. PATCH and PUT share the handler; both trigger the
	// lead-to-client synchronizer.
	lead := api.Group("/leads", staff)
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Patch("/:id", leadController.UpdateLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)
	lead.Post("/:id/convert", leadController.ConvertLead)

	// Client routes
	client := api.Group("/clients", staff)
	client.Post("/", clientController.CreateClient)
	client.Get("/", clientController.GetClients)
	client.Get("/:id", clientController.GetClient)
	client.Put("/:id", clientController.UpdateClient)
	client.Patch("/:id", clientController.UpdateClient)
	client.Delete("/:id", clientController.DeleteClient)
	client.Post("/:id/portal-account", clientController.CreatePortalAccount)
	client.Put("/:id/portal-account", clientController.UpdatePortalAccount)

	// Policy routes
	policy := api.Group("/policies", staff)
	policy.Post("/", policyController.CreatePolicy)
	policy.Get("/", policyController.GetPolicies)
	policy.Get("/renewals", policyController.GetRenewals)
	policy.Get("/:id", policyController.GetPolicy)
	policy.Put("/:id", policyController.UpdatePolicy)
	policy.Delete("/:id", policyController.DeletePolicy)

	// Quote routes
	quote := api.Group("/quotes", staff)
	quote.Post("/", quoteController.CreateQuote)
	quote.Get("/", quoteController.GetQuotes)
	quote.Get("/:id", quoteController.GetQuote)
	quote.Put("/:id", quoteController.UpdateQuote)
	quote.Delete("/:id", quoteController.DeleteQuote)

	// Commission routes; writes are admin-only
	commission := api.Group("/commissions", staff)
	commission.Get("/", commissionController.GetCommissions)
	commission.Get("/summary", commissionController.GetCommissionSummary)
	commission.Post("/", middleware.RequireRole(models.RoleAdmin), commissionController.CreateCommission)
	commission.Post("/:id/pay", middleware.RequireRole(models.RoleAdmin), commissionController.MarkCommissionPaid)

	// Document routes
	document := api.Group("/documents", staff)
	document.Post("/", documentController.UploadDocument)
	document.Get("/", documentController.GetDocuments)
	document.Get("/:id/download", documentController.DownloadDocument)
	document.Delete("/:id", documentController.DeleteDocument)

	// Task routes
	task := api.Group("/tasks", staff)
	task.Post("/", taskController.CreateTask)
	task.Get("/", taskController.GetTasks)
	task.Put("/:id", taskController.UpdateTask)
	task.Post("/:id/complete", taskController.CompleteTask)
	task.Delete("/:id", taskController.DeleteTask)

	// Calendar routes
	calendar := api.Group("/calendar", staff)
	calendar.Post("/", calendarController.CreateEvent)
	calendar.Get("/", calendarController.GetEvents)
	calendar.Put("/:id", calendarController.UpdateEvent)
	calendar.Delete("/:id", calendarController.DeleteEvent)

	// Marketing template routes
	template := api.Group("/templates", staff)
	template.Post("/", templateController.CreateTemplate)
	template.Get("/", templateController.GetTemplates)
	template.Put("/:id", templateController.UpdateTemplate)
	template.Delete("/:id", templateController.DeleteTemplate)
	template.Post("/:id/send", templateController.SendTemplate)

	// Dashboard
	dashboard := api.Group("/dashboard", staff)
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	// Staff account management, admin-only
	users := api.Group("/users", staff, middleware.RequireRole(models.RoleAdmin))
	users.Post("/", userController.CreateUser)
	users.Get("/", userController.GetUsers)
	users.Put("/:id", userController.UpdateUser)
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	SetupAuthRoutes(api)
	SetupPortalRoutes(api, db)
	SetupStaffRoutes(api, db)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
