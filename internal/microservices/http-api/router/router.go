package router

import (
	"fmt"

	"petshop/internal/config"
	"petshop/internal/microservices/http-api/handler"
	"petshop/internal/microservices/http-api/middleware"
	"petshop/internal/microservices/http-api/service"
	"petshop/internal/microservices/http-api/validation"
	"petshop/internal/microservices/websocket"

	"github.com/gin-gonic/gin"
)

// Dependencies are built once at startup and shared by every handler
type Dependencies struct {
	Config         *config.Config
	AuthService    service.AuthService
	ProductService service.ProductService
	Hub            *websocket.Hub
	DB             handler.Pinger // optional, used by /health
}

func New(deps Dependencies) (*gin.Engine, error) {
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.CORSOrigins))

	if deps.Config.StaticDir != "" {
		r.Static("/static", deps.Config.StaticDir)
	}

	requireAuth := middleware.AuthMiddleware(deps.AuthService)

	handler.NewAuthHandler(deps.AuthService).RegisterRoutes(r)
	handler.NewProductHandler(deps.ProductService).RegisterRoutes(r.Group("/products"), requireAuth)

	chat := handler.NewChatHandler(deps.Hub.Store())
	r.GET("/chat/messages", chat.Messages)
	r.GET("/ws/chat", websocket.WSHandler(deps.Hub, deps.Config.CORSOrigins))

	health := handler.NewHealthHandler(deps.Hub, deps.Hub.Store(), deps.DB)
	r.GET("/health", health.Health)

	return r, nil
}
