package middleware

import (
	"net/http"
	"sync"

	"marketsync/internal/auth"
	"marketsync/internal/models"

	"github.com/gin-gonic/gin"
)

type UserEnsurer interface {
	EnsureExists(id, displayName string) (*models.User, error)
}

// EnsureUser creates the caller's user row on first sight. Must run after AuthRequired.
func EnsureUser(users UserEnsurer) gin.HandlerFunc {
	var seen sync.Map
	return func(c *gin.Context) {
		id := GetUserID(c)
		if _, ok := seen.Load(id); !ok {
			name := ""
			if claims, ok := c.Get("claims"); ok {
				name = claims.(*auth.Claims).Name
			}
			if _, err := users.EnsureExists(id, name); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
				return
			}
			seen.Store(id, struct{}{})
		}
		c.Next()
	}
}
