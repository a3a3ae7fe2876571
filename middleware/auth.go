package middleware

import (
	"brokercrm/config"
	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
)

// Realm mismatches answer exactly like missing credentials so a caller in the
// wrong realm cannot learn that the other realm's routes exist.
func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Authentication required",
	})
}

// RequireStaff guards staff-only route groups. On success the staff user and
// session are stored in locals.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := utils.ResolveSession(config.DB, utils.TokenFromRequest(c))
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Session store unavailable", err)
		}
		if session == nil || session.Realm != models.RealmStaff || session.UserID == nil {
			return unauthenticated(c)
		}

		var user models.User
		if err := config.DB.First(&user, *session.UserID).Error; err != nil {
			return unauthenticated(c)
		}
		if !user.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not active",
			})
		}

		c.Locals("user", &user)
		c.Locals("session", session)
		return c.Next()
	}
}

// RequireClient guards portal-client route groups. On success the portal
// account, preloaded with its linked client record, is stored in locals.
func RequireClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := utils.ResolveSession(config.DB, utils.TokenFromRequest(c))
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Session store unavailable", err)
		}
		if session == nil || session.Realm != models.RealmClient || session.PortalAccountID == nil {
			return unauthenticated(c)
		}

		var account models.PortalAccount
		if err := config.DB.Preload("Client").First(&account, *session.PortalAccountID).Error; err != nil {
			return unauthenticated(c)
		}
		if !account.IsActive {
			return unauthenticated(c)
		}

		c.Locals("portalAccount", &account)
		c.Locals("session", session)
		return c.Next()
	}
}

// RequireRole layers a role check on top of RequireStaff. It must be
// registered after RequireStaff on the same group.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return unauthenticated(c)
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}
}
