package routes

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	_ "agency_portal/docs" // swagger spec registration
	"agency_portal/internal/adapter/http/handlers"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/bootstrap"
	"agency_portal/internal/usecase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the gin engine with every portal route registered.
func NewRouter(jwtSecret string, proposals usecase.IProposalUseCase, invoices usecase.IInvoiceUseCase) *gin.Engine {
	router := gin.New()
	setMiddlewares(router)

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	addPingRoutes(router)

	v1 := router.Group("/v1", middleware.ActorMiddleware(jwtSecret))
	addProposalRoutes(v1, handlers.NewProposalHandler(proposals))
	addInvoiceRoutes(v1, handlers.NewInvoiceHandler(invoices))
	return router
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, app *bootstrap.App) error {
	if app.Config.JwtSecret == "" {
		log.Printf("[routes] JWT_SECRET not set, trusting %s header", middleware.HeaderActorID)
	}
	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           NewRouter(app.Config.JwtSecret, app.Proposals, app.Invoices),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[routes] listening addr=%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[routes] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setMiddlewares(router *gin.Engine) {
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
}
