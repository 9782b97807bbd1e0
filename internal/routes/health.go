package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/agrisetu/agrisetu/internal/infra"
)

// RegisterHealthRoutes adds the health and store-status endpoints. Both read
// a snapshot from the lifecycle manager; neither gates on it, and request
// handlers never consult it either (operations fail on their own if the
// store is down).
func RegisterHealthRoutes(r fiber.Router, store StoreStatus) {
	status := func() infra.Status {
		if store == nil {
			return infra.Status{State: infra.StateDisconnected.String()}
		}
		return store.Status()
	}

	r.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"mongodb":   status(),
		})
	})

	r.Get("/mongodb-status", func(c *fiber.Ctx) error {
		st := status()
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":   st.Connected,
			"status":    st.State,
			"connected": st.Connected,
			"retries":   st.Retries,
			"host":      st.Host,
			"database":  st.Database,
		})
	})
}
