package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/hsqsh/maisHack25/internal/detect"
	"github.com/hsqsh/maisHack25/internal/dto"
	"github.com/hsqsh/maisHack25/internal/pkg/logger"
	"github.com/hsqsh/maisHack25/internal/relay"
)

var validate = validator.New()

// RelayHandler exposes the session relay over HTTP and websocket.
type RelayHandler struct {
	hub      *relay.Hub
	detector detect.Detector
	logger   logger.ILogger
}

func NewRelayHandler(hub *relay.Hub, detector detect.Detector, log logger.ILogger) *RelayHandler {
	return &RelayHandler{
		hub:      hub,
		detector: detector,
		logger:   log,
	}
}

// Health reports relay liveness.
func (h *RelayHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// DetectorHealth probes the detection collaborator's liveness endpoint.
func (h *RelayHandler) DetectorHealth(c *fiber.Ctx) error {
	if h.detector == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "error": "detector not configured"})
	}
	if err := h.detector.Health(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Notify fans a found-notification out to every peer of a session. A missing
// session is rejected before any relay state is touched.
func (h *RelayHandler) Notify(c *fiber.Ctx) error {
	var req dto.NotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session is required"})
	}

	delivered, throttled := h.hub.Notify(req.Session, req.Type, req.Payload)
	if throttled {
		return c.JSON(dto.NotifyResponse{Delivered: 0, Throttled: true})
	}
	return c.JSON(dto.NotifyResponse{Delivered: delivered})
}

// ServeWs upgrades the connection and registers the peer. A missing session
// or a role other than "peer" is closed with a policy-violation code instead
// of being silently accepted.
func (h *RelayHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		session := conn.Query("session")
		role := conn.Query("role")
		if err := relay.ValidateRegistration(session, role); err != nil {
			h.logger.Warn("RelayHandler", "Rejected socket with bad session/role", map[string]interface{}{
				"session": session,
				"role":    role,
			})
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
			conn.Close()
			return
		}

		h.logger.Info("RelayHandler", "Starting relay session", map[string]interface{}{"session": session})
		relay.ServeConn(h.hub, conn, session, h.logger)
		h.logger.Info("RelayHandler", "Relay session ended", map[string]interface{}{"session": session})
	})(c)
}

// RegisterRoutes registers the relay routes.
func (h *RelayHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/health/detector", h.DetectorHealth)

	api := app.Group("/api")
	api.Post("/notify", h.Notify)

	// WebSocket
	app.Get("/ws", h.ServeWs)
}
