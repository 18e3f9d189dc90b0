package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/services"
)

// bearerToken reads the token from the Authorization header, or from the
// token query parameter since browsers cannot set headers on websocket
// upgrades. The second return is the rejection message.
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, ""
		}
		return "", "Authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", "Invalid authorization format"
	}
	return token, ""
}

// AuthMiddleware admits requests carrying a valid bridge token and exposes
// the wallet it was minted for.
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reject := bearerToken(c)
		if reject != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reject})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.WithError(err).Debug("auth: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("wallet", claims.Wallet)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}

func RateLimitMiddleware(limiter services.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := c.GetString("wallet")
		if limiter == nil || wallet == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var limit int
		var window time.Duration

		switch {
		case strings.HasSuffix(path, "/reveal/scratch"):
			limit = services.DefaultRateLimitScratch
			window = time.Minute
		case strings.HasSuffix(path, "/profile"), strings.HasSuffix(path, "/referral"), strings.HasSuffix(path, "/nft"):
			if c.Request.Method == http.MethodGet {
				c.Next()
				return
			}
			limit = 10 // 10 account writes per minute
			window = time.Minute
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(wallet, path, limit, window)
		if err != nil {
			log.WithError(err).Warn("ratelimit: check failed, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
