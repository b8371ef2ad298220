package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat allows for a simple check to see if the server's alive
func (a *API) Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}
