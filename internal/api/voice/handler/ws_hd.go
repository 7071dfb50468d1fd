package voiceHandler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"VoiceIntent/pkg/handlerUtil"
	jwtPkg "VoiceIntent/pkg/jwt"
	"VoiceIntent/pkg/log"
)

const sessionLocal = "voice_session_id"

// UpgradeNavigation admits authenticated websocket upgrades and pins the
// caller's session on the connection.
func (h *VoiceHandler) UpgradeNavigation(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return handlerUtil.New(h.log).HandleUnauthorized(ctx, h.middleware.GetRequestID(ctx), "Unauthorized")
	}

	ctx.Locals(sessionLocal, userData.ID)
	return ctx.Next()
}

func (h *VoiceHandler) NavigationSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID, _ := conn.Locals(sessionLocal).(string)
		if sessionID == "" {
			conn.Close()
			return
		}

		h.log.WithFields(log.Fields{
			log.SessionIDKey: sessionID,
		}).Info("Navigation channel connected")

		h.hub.Serve(sessionID, conn)

		h.log.WithFields(log.Fields{
			log.SessionIDKey: sessionID,
		}).Info("Navigation channel closed")
	})
}
