// Package bootstrap wires configuration into repositories, use cases and
// infrastructure clients shared by the api, worker and one-shot commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"agency_portal/internal/adapter/persistence/memory"
	"agency_portal/internal/adapter/persistence/repository"
	"agency_portal/internal/config"
	"agency_portal/internal/domain/clauses"
	"agency_portal/internal/infrastructure/cache"
	"agency_portal/internal/infrastructure/database"
	"agency_portal/internal/infrastructure/email"
	"agency_portal/internal/infrastructure/payments"
	"agency_portal/internal/infrastructure/queue"
	"agency_portal/internal/usecase"
	"agency_portal/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// App holds everything built from one Config.
type App struct {
	Config    *config.Config
	Catalog   *clauses.Catalog
	Proposals *usecase.ProposalUseCase
	Invoices  *usecase.InvoiceUseCase
	Sender    email.Sender

	DynamoDB *dynamodb.Client
	Redis    *redis.Client

	clauseRepo *repository.ClauseDynamoRepository
	closers    []func() error
}

// New connects the configured backends and builds the use cases. Close must
// be called to release them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Sender: email.NewSender(cfg)}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog

	var (
		proposalRepo interfaces.IProposalRepository
		invoiceRepo  interfaces.IInvoiceRepository
		clauseStore  interfaces.IClauseStore = clauses.NewCatalogStore(catalog)
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Printf("[bootstrap] storage=memory")
		store := memory.NewStore()
		proposalRepo, invoiceRepo = store, store.Invoices()
	default:
		ddb, err := database.ConnectDynamoDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.DynamoDB = ddb
		proposals := repository.NewProposalDynamoRepository(ddb)
		invoices := repository.NewInvoiceDynamoRepository(ddb)
		a.clauseRepo = repository.NewClauseDynamoRepository(ddb)
		if cfg.EnsureTables {
			defs := append(proposals.TableDefinitions(), invoices.TableDefinitions()...)
			defs = append(defs, a.clauseRepo.TableDefinitions()...)
			if err := database.EnsureTables(ctx, ddb, defs); err != nil {
				return nil, err
			}
		}
		if cfg.ClauseSource == config.ClauseSourceDynamoDB {
			clauseStore = a.clauseRepo
		}
		proposalRepo, invoiceRepo = proposals, invoices
		log.Printf("[bootstrap] storage=dynamodb clause_source=%s", cfg.ClauseSource)
	}

	notifier, err := a.newNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Proposals = usecase.NewProposalUseCase(proposalRepo, invoiceRepo, clauseStore, clauses.NewResolver(catalog), notifier, usecase.ProposalSettings{
		ExpiryWindow:            cfg.ProposalExpiry,
		ReminderWindow:          cfg.ReminderWindow,
		DefaultPaymentTermsDays: cfg.DefaultPaymentTermsDays,
		DefaultCurrency:         cfg.DefaultCurrency,
		MaxLineItems:            cfg.MaxLineItems,
	})

	var gateway interfaces.IPaymentGateway
	mpGateway, err := payments.NewMercadoPagoGateway(cfg.MercadoPagoAccessToken, cfg.PaymentGatewayMock)
	if err != nil {
		log.Printf("[bootstrap] Mercado Pago gateway not configured: %v", err)
	} else {
		gateway = mpGateway
	}
	a.Invoices = usecase.NewInvoiceUseCase(invoiceRepo, gateway, usecase.InvoiceSettings{
		RequirePaymentMethod: cfg.PaymentRequireMethod && !cfg.PaymentGatewayMock,
		SandboxPayerEmail:    cfg.MercadoPagoSandboxPayer,
	})

	return a, nil
}

func (a *App) newNotifier(ctx context.Context) (interfaces.INotificationDispatcher, error) {
	if !a.Config.NotificationsEnabled {
		log.Printf("[bootstrap] notifications disabled, logging only")
		return queue.LoggingDispatcher{}, nil
	}
	rdb, err := a.ConnectRedis(ctx)
	if err != nil {
		return nil, err
	}
	client := asynq.NewClient(cache.AsynqOpt(rdb))
	a.closers = append(a.closers, client.Close)
	return queue.NewDispatcher(client), nil
}

// ConnectRedis returns the shared Redis client, connecting on first use.
func (a *App) ConnectRedis(ctx context.Context) (*redis.Client, error) {
	if a.Redis != nil {
		return a.Redis, nil
	}
	rdb, err := cache.ConnectRedis(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	if err != nil {
		return nil, err
	}
	a.Redis = rdb
	a.closers = append(a.closers, func() error { return cache.DisconnectRedis(rdb) })
	return rdb, nil
}

// Processor builds the task processor that runs notifications and sweeps.
func (a *App) Processor() *queue.TaskProcessor {
	return queue.NewTaskProcessor(a.Sender, a.Config.SmtpFromAddress, a.Proposals, a.Invoices)
}

// SeedClauses writes the catalog clauses to the DynamoDB clause table.
func (a *App) SeedClauses(ctx context.Context) (int, error) {
	if a.clauseRepo == nil {
		return 0, errors.New("clause seeding requires STORAGE_DRIVER=dynamodb")
	}
	cs := a.Catalog.Clauses()
	if err := a.clauseRepo.Seed(ctx, cs); err != nil {
		return 0, fmt.Errorf("seed clauses: %w", err)
	}
	return len(cs), nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[bootstrap] close failed err=%v", err)
		}
	}
	a.closers = nil
}

func loadCatalog(cfg *config.Config) (*clauses.Catalog, error) {
	if cfg.ClauseCatalogPath == "" {
		return clauses.DefaultCatalog()
	}
	catalog, err := clauses.LoadCatalog(cfg.ClauseCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load clause catalog %s: %w", cfg.ClauseCatalogPath, err)
	}
	return catalog, nil
}
