package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthLogin checks the admin credentials from the config and hands out a
// signed session token.
func (a *API) AuthLogin(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if data.Username == "" || data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Username and password fields can't be empty",
			"requestID": requestID,
		})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(data.Username), []byte(viper.GetString("admin.username"))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(data.Password), []byte(viper.GetString("admin.password"))) == 1
	if !userOK || !passOK {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	sessionDays := viper.GetInt("admin.session_duration")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": data.Username,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour * 24 * time.Duration(sessionDays)).Unix(),
	})

	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret")))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to sign token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   signed,
	})
}

type verifyBody struct {
	Token string `json:"token"`
}

// AuthVerify reports whether a previously issued token is still valid.
func (a *API) AuthVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBindJSON(&data); err != nil || data.Token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Missing token",
			"requestID": requestID,
		})
		return
	}

	token, err := jwt.Parse(data.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "token_invalid",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    token.Claims,
	})
}
