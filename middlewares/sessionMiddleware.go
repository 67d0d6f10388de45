package middlewares

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/retrove/consign_backend/utils"
)

// SessionMiddleware resolves the token header into an operator and puts
// the operator identity on the request context. Requests without a token
// pass through anonymous; handlers that need an operator reject them.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		value, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		operatorId, err := strconv.Atoi(value)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		var user models.User
		cacheKey := "User:" + value
		found, _ := config.GetRedisObject(cacheKey, &user)
		if !found {
			loaded, err := models.GetUser(c.Request.Context(), operatorId)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			user = *loaded
			config.SetRedisObject(cacheKey, user, 0)
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetOperatorIdInContext(ctx, user.ID)
		ctx = utils.SetOperatorNameInContext(ctx, user.Name)
		ctx = utils.SetIsAdminInContext(ctx, user.IsAdmin != nil && *user.IsAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
