package server

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/handlers"
	"github.com/cyphera/preauth-api/internal/identity"
	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/middleware"
	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
)

// Handler Definitions
var (
	delegationHandler *handlers.DelegationHandler
	preAuthHandler    *handlers.PreAuthorizationHandler
	debitHandler      *handlers.DebitHandler
	ledgerHandler     *handlers.LedgerHandler

	// memoryLedger is set when no external ledger is configured; its admin
	// routes are only registered in that mode.
	memoryLedger *ledger.MemoryLedger
)

func InitializeHandlers() {
	recordStore := buildStore()

	memoryLedger = ledger.NewMemoryLedger()
	verifier := buildVerifier()

	delegationService := services.NewDelegationService(recordStore, memoryLedger)
	preAuthService := services.NewPreAuthorizationService(recordStore, memoryLedger)
	debitService := services.NewDebitService(recordStore, memoryLedger, engine.SystemClock{})

	commonServices := handlers.NewCommonServices(
		delegationService,
		preAuthService,
		debitService,
		memoryLedger,
		verifier,
	)

	delegationHandler = handlers.NewDelegationHandler(commonServices)
	preAuthHandler = handlers.NewPreAuthorizationHandler(commonServices)
	debitHandler = handlers.NewDebitHandler(commonServices)
	ledgerHandler = handlers.NewLedgerHandler(commonServices, memoryLedger)
}

// buildStore selects the record store from the environment. With DATABASE_URL
// set the records persist in Postgres; otherwise everything lives in process
// memory and is lost on restart.
func buildStore() store.Store {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory record store")
		return store.NewMemoryStore()
	}

	ctx := context.Background()
	pool, err := store.NewPostgresPool(ctx, dbURL)
	if err != nil {
		logger.Fatal("Unable to create connection pool", zap.Error(err))
	}

	pgStore := store.NewPostgresStore(pool)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("Unable to ensure database schema", zap.Error(err))
	}
	return pgStore
}

// buildVerifier selects the signature verifier. AUTH_MODE=insecure skips
// signature checks entirely; local development only.
func buildVerifier() identity.Verifier {
	if os.Getenv("AUTH_MODE") == "insecure" {
		logger.Warn("AUTH_MODE=insecure: signature verification is disabled")
		return identity.NewInsecureVerifier()
	}
	return identity.NewPersonalSignVerifier()
}

func InitializeRoutes(router *gin.Engine) {
	// Configure and apply CORS middleware
	router.Use(configureCORS())
	router.Use(middleware.CorrelationID())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// if we are not in production, log the request body
	if os.Getenv("GIN_MODE") != "release" {
		router.Use(handlers.LogRequest())
	}

	rateLimiter := middleware.NewRateLimiter(100, 200)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(rateLimiter.Middleware())
	{
		// Smart delegates
		smartDelegates := v1.Group("/smart-delegates")
		{
			smartDelegates.POST("", delegationHandler.InitSmartDelegate)
			smartDelegates.GET("/:token_account", delegationHandler.GetSmartDelegate)
			smartDelegates.POST("/:token_account/revoke", delegationHandler.RevokeSmartDelegate)
			smartDelegates.DELETE("/:token_account", delegationHandler.CloseSmartDelegate)
		}

		// Pre-authorizations
		preAuths := v1.Group("/pre-authorizations")
		{
			preAuths.POST("", preAuthHandler.InitPreAuthorization)
			preAuths.GET("/:token_account/:debit_authority", preAuthHandler.GetPreAuthorization)
			preAuths.GET("/:token_account/:debit_authority/available", preAuthHandler.GetAvailableAmount)
			preAuths.POST("/:token_account/:debit_authority/pause", preAuthHandler.SetPaused(true))
			preAuths.POST("/:token_account/:debit_authority/unpause", preAuthHandler.SetPaused(false))
			preAuths.DELETE("/:token_account/:debit_authority", preAuthHandler.ClosePreAuthorization)
		}

		// Pre-authorizations listed by their funding account
		v1.GET("/token-accounts/:token_account/pre-authorizations", preAuthHandler.ListPreAuthorizations)

		// Debits
		v1.POST("/debits", debitHandler.Debit)

		// Local ledger administration (in-memory ledger mode only)
		if memoryLedger != nil {
			ledgerGroup := v1.Group("/ledger")
			{
				ledgerGroup.POST("/mints", ledgerHandler.CreateMint)
				ledgerGroup.POST("/token-accounts", ledgerHandler.CreateTokenAccount)
				ledgerGroup.GET("/token-accounts/:address", ledgerHandler.GetTokenAccount)
			}
		}
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CorrelationIDHeader}
	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
