package main

import (
	"strconv"

	"insoft/depot-api/api"
	"insoft/depot-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting", zap.Int("port", viper.GetInt("server.port")))

	err = a.Router.Run(":" + strconv.Itoa(viper.GetInt("server.port")))
	if err != nil {
		panic(err)
	}
}
