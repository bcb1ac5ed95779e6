package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusoul/internal/models"
	"campusoul/internal/redis"
	"campusoul/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SessionStore looks up the login session written at login, so a logout
// (or a newer login) invalidates older tokens. A nil store disables the
// check.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// AuthRequired validates the bearer token against the session store,
// loads the account and puts "user_id" and "user" into the request
// context. It also refreshes the account's last-active timestamp.
func AuthRequired(db *gorm.DB, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		if sessions != nil {
			stored, err := sessions.Get(c.Request.Context(), redis.SessionKey(claims.UserID))
			if err != nil {
				// A session-store outage must not lock everyone out.
				logrus.WithError(err).Warn("Session lookup failed")
			} else if stored != tokenString {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				c.Abort()
				return
			}
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		db.Model(&user).UpdateColumn("last_active", time.Now())

		c.Set("user_id", user.ID)
		c.Set("user", &user)
		c.Next()
	}
}

// AdminRequired allows only accounts with the administrative flag.
// Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		user := value.(*models.User)
		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SelfRequired rejects requests whose :userId path parameter does not
// belong to the authenticated user. Must run after AuthRequired.
func SelfRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		paramID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			c.Abort()
			return
		}

		if uint(paramID) != userID.(uint) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
