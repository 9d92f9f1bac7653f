package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"marketsync/internal/auth"
	"marketsync/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type countingUsers struct {
	calls map[string]int
	names map[string]string
}

func (u *countingUsers) EnsureExists(id, name string) (*models.User, error) {
	u.calls[id]++
	u.names[id] = name
	return &models.User{ID: id, DisplayName: name}, nil
}

func TestEnsureUserCreatesOncePerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := &countingUsers{calls: map[string]int{}, names: map[string]string{}}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		id := c.GetHeader("X-User")
		c.Set("user_id", id)
		c.Set("claims", &auth.Claims{UserID: id, Name: "name-" + id})
		c.Next()
	}, EnsureUser(users))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "a", "b", "a"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", id)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, map[string]int{"a": 1, "b": 1}, users.calls)
	assert.Equal(t, "name-a", users.names["a"])
}
