package handler

import (
	"net/http"

	"marketsync/config"
	"marketsync/internal/auth"
	"marketsync/internal/domain"
	"marketsync/internal/service"
	"marketsync/internal/ws"

	"github.com/gin-gonic/gin"
)

// UpgradeFeedWS upgrades to the push channel; query: token, table, scope. A user may read
// their own notifications, the messages of bookings they take part in, and global presence.
func UpgradeFeedWS(cfg *config.JWTConfig, hub *ws.Hub, bookings *service.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		topic := ws.Topic{Table: c.Query("table"), Scope: c.Query("scope")}
		if token == "" || topic.Table == "" || topic.Scope == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token, table and scope required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		switch topic.Table {
		case domain.TableNotifications:
			if topic.Scope != claims.UserID {
				c.JSON(http.StatusForbidden, gin.H{"error": "notifications are private"})
				return
			}
		case domain.TableMessages:
			if _, err := bookings.Participant(topic.Scope, claims.UserID); err != nil {
				respondError(c, err)
				return
			}
		case domain.TablePresence:
			if topic.Scope != domain.PresenceScopeGlobal {
				c.JSON(http.StatusBadRequest, gin.H{"error": "presence scope must be global"})
				return
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown table"})
			return
		}
		ws.ServeFeed(c, hub, claims.UserID, topic)
	}
}
