package api

import (
	"errors"
	"net/http"

	"insoft/depot-api/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type appBody struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func (a *API) AppsList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	apps, err := a.Apps.All()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read apps list", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, apps)
}

func (a *API) AppsCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data appBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if data.Name == "" || data.DisplayName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Name and display name can't be empty",
			"requestID": requestID,
		})
		return
	}

	app, err := a.Apps.Create(data.Name, data.DisplayName, data.Description)
	if err != nil {
		if errors.Is(err, store.ErrAppExists) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "An app with that name already exists",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create app", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, app)
}

func (a *API) AppsUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data appBody
	if err := c.ShouldBindJSON(&data); err != nil || data.DisplayName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	app, err := a.Apps.Update(c.Param("id"), data.DisplayName, data.Description)
	if err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "App not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update app", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, app)
}

func (a *API) AppsDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	if err := a.Apps.Delete(c.Param("id")); err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "App not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete app", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
