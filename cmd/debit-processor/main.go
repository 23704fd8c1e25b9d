package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awsclient "github.com/cyphera/preauth-api/internal/client/aws"
	"github.com/cyphera/preauth-api/internal/client/queue"
	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/processor"
	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
)

const stageLocal = "local"

// Application holds all dependencies for the Lambda handler
type Application struct {
	processor *processor.DebitProcessor
}

// HandleRequest runs one collection pass. Lambda invokes it on a schedule;
// locally it runs once and exits.
func (app *Application) HandleRequest(ctx context.Context) error {
	logger.Info("Starting debit processing run")

	results, err := app.processor.ProcessDuePreAuthorizations(ctx)
	if err != nil {
		logger.Error("Error processing pre-authorizations", zap.Error(err))
		return fmt.Errorf("HandleRequest: error from ProcessDuePreAuthorizations: %w", err)
	}

	logger.Info("Debit processing results",
		zap.Int("total", results.Total),
		zap.Int("succeeded", results.Succeeded),
		zap.Int("failed", results.Failed),
		zap.Int("skipped", results.Skipped),
		zap.Uint64("amount_debited", results.AmountDebited),
	)
	return nil
}

func main() {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v. Proceeding with environment variables/secrets.", err)
	}

	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = stageLocal
	}

	logger.InitLogger()
	logger.Info("Initializing debit processor", zap.String("stage", stage))
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	config := loadProcessorConfig()
	recordStore := buildStore(ctx, stage)

	tokenLedger := buildLedger(ctx, recordStore)
	debitService := services.NewDebitService(recordStore, tokenLedger, engine.SystemClock{})

	var publisher processor.FailedAttemptPublisher
	if dlqURL := os.Getenv("DEBIT_DLQ_URL"); dlqURL != "" {
		sqsPublisher, err := queue.NewFailedDebitPublisher(ctx, dlqURL)
		if err != nil {
			logger.Fatal("Failed to initialize SQS publisher", zap.Error(err))
		}
		publisher = sqsPublisher
	} else {
		logger.Warn("DEBIT_DLQ_URL not set, failed attempts will only be logged")
	}

	app := &Application{
		processor: processor.NewDebitProcessor(recordStore, debitService, publisher, config),
	}

	if stage == stageLocal {
		if err := app.HandleRequest(ctx); err != nil {
			logger.Fatal("Processing run failed", zap.Error(err))
		}
		return
	}

	// lambda.Start blocks and handles scheduled invocations
	lambda.Start(app.HandleRequest)
}

// loadProcessorConfig reads the processor identity from the environment and
// fails fast when required pieces are missing.
func loadProcessorConfig() processor.Config {
	debitAuthority := requireAddress("DEBIT_AUTHORITY")
	destination := requireAddress("DEBIT_DESTINATION")
	mint := requireAddress("DEBIT_MINT")

	decimals := uint8(0)
	if raw := os.Getenv("DEBIT_MINT_DECIMALS"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			logger.Fatal("DEBIT_MINT_DECIMALS is not a valid decimal count", zap.String("value", raw), zap.Error(err))
		}
		decimals = uint8(parsed)
	}

	maxRetries := uint64(3)
	if raw := os.Getenv("DEBIT_MAX_RETRIES"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			logger.Fatal("DEBIT_MAX_RETRIES is not a valid count", zap.String("value", raw), zap.Error(err))
		}
		maxRetries = parsed
	}

	return processor.Config{
		DebitAuthority: debitAuthority,
		Destination:    destination,
		Mint:           mint,
		Decimals:       decimals,
		MaxRetries:     maxRetries,
	}
}

func requireAddress(envVar string) common.Address {
	raw := os.Getenv(envVar)
	if raw == "" {
		logger.Fatal("Required environment variable not set", zap.String("variable", envVar))
	}
	if !common.IsHexAddress(raw) {
		logger.Fatal("Environment variable is not a valid address", zap.String("variable", envVar), zap.String("value", raw))
	}
	return common.HexToAddress(raw)
}

// buildLedger constructs the in-process token ledger from the seed file named
// by LEDGER_SEED_FILE. The ledger lives in process memory and stands in for
// the external token ledger, so it starts empty; without mint and account
// state every debit would fail, hence the seed file is required. Delegate
// approvals recorded in the store are re-issued for the seeded accounts.
func buildLedger(ctx context.Context, recordStore store.Store) ledger.Ledger {
	seedPath := os.Getenv("LEDGER_SEED_FILE")
	if seedPath == "" {
		logger.Fatal("LEDGER_SEED_FILE not set; the in-process ledger needs mint and account state to debit against")
	}

	file, err := os.Open(seedPath)
	if err != nil {
		logger.Fatal("Failed to open ledger seed file", zap.String("path", seedPath), zap.Error(err))
	}
	defer file.Close()

	seed, err := ledger.ParseSeed(file)
	if err != nil {
		logger.Fatal("Failed to parse ledger seed file", zap.String("path", seedPath), zap.Error(err))
	}

	tokenLedger := ledger.NewMemoryLedger()
	if err := tokenLedger.ApplySeed(seed); err != nil {
		logger.Fatal("Failed to apply ledger seed", zap.Error(err))
	}
	if err := processor.RestoreDelegateApprovals(ctx, recordStore, tokenLedger, seed.AccountAddresses()); err != nil {
		logger.Fatal("Failed to restore delegate approvals", zap.Error(err))
	}

	logger.Info("Seeded in-process ledger",
		zap.Int("mints", len(seed.Mints)),
		zap.Int("token_accounts", len(seed.TokenAccounts)),
	)
	return tokenLedger
}

// buildStore resolves the database URL, preferring Secrets Manager in
// deployed stages, and falls back to process memory locally.
func buildStore(ctx context.Context, stage string) store.Store {
	var dsn string
	if stage == stageLocal {
		dsn = os.Getenv("DATABASE_URL")
	} else {
		secretsClient, err := awsclient.NewSecretsManagerClient(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize AWS Secrets Manager client", zap.Error(err))
		}
		dsn, err = secretsClient.GetSecretString(ctx, "DATABASE_URL_ARN", "DATABASE_URL")
		if err != nil {
			logger.Fatal("Failed to resolve database URL", zap.Error(err))
		}
	}

	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory record store")
		return store.NewMemoryStore()
	}

	pool, err := store.NewPostgresPool(ctx, dsn)
	if err != nil {
		logger.Fatal("Unable to create connection pool", zap.Error(err))
	}
	// The pool persists across warm Lambda invocations; the runtime reclaims
	// it on container shutdown.
	pgStore := store.NewPostgresStore(pool)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("Unable to ensure database schema", zap.Error(err))
	}
	return pgStore
}
