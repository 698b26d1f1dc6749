package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/middleware"
)

// sessions resolves the cart owner of a request from the JWT and the guest cookie
type sessions struct {
	cfg config.CartConfig
}

// owner returns the signed-in user, if any, plus the guest session. Guests
// get a fresh session cookie on first contact.
func (s sessions) owner(c *gin.Context) cart.Owner {
	userID, ok := middleware.GetUserIDFromContext(c)
	if ok {
		return cart.Owner{UserID: userID, SessionID: s.sessionID(c)}
	}
	return cart.Owner{SessionID: s.getOrCreateSessionID(c)}
}

// sessionID returns the guest session id from the cookie, or "" if absent
func (s sessions) sessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return ""
	}
	return sessionID
}

// getOrCreateSessionID gets the guest session id or sets a new cookie
func (s sessions) getOrCreateSessionID(c *gin.Context) string {
	if sessionID := s.sessionID(c); sessionID != "" {
		return sessionID
	}

	sessionID := uuid.New().String()
	c.SetCookie(s.cfg.SessionCookie, sessionID, int(s.cfg.SessionTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
	return sessionID
}
