package router

import (
	"net/http"

	"user-contract-service/api/swagger"
	"user-contract-service/internal/adapter/gin/handler"
	"user-contract-service/internal/adapter/gin/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// ProviderStatesPath is where contract verifiers post provider state changes
const ProviderStatesPath = "/_pact/provider-states"

// SetupRouter configures and returns a Gin router with all routes and middleware.
// The provider state route is registered only when stateHandler is not nil.
func SetupRouter(
	userHandler *handler.UserHandler,
	stateHandler *handler.ProviderStateHandler,
	serviceName string,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	swaggerUI := httpSwagger.Handler(httpSwagger.URL("/swagger" + swagger.DocPath))
	router.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == swagger.DocPath {
			c.Data(http.StatusOK, "application/json", swagger.Doc)
			return
		}
		swaggerUI(c.Writer, c.Request)
	})

	router.GET("/users/:id", userHandler.GetUser)

	if stateHandler != nil {
		router.POST(ProviderStatesPath, stateHandler.ChangeState)
	}

	return router
}
