package provider

import (
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/cache"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/queue"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"gorm.io/gorm"
)

// Container dependency container
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Transactor  repository.Transactor

	// Repositories
	UserRepo           repository.UserRepository
	CustomerRepo       repository.CustomerRepository
	ProductRepo        repository.ProductRepository
	OrderRepo          repository.OrderRepository
	AuditRepo          repository.AuditRepository
	PaymentRepo        repository.PaymentRepository
	PurchaseRepo       repository.PurchaseRepository
	ExceptionRepo      repository.ExceptionRepository
	RouteRepo          repository.RouteRepository
	ReconciliationRepo repository.ReconciliationRepository

	// Services
	AuthzService          *authz.Service
	StockService          *service.StockService
	BalanceService        *service.BalanceService
	AuditService          *service.AuditService
	OrderService          *service.OrderService
	ExceptionService      *service.ExceptionService
	RouteService          *service.RouteService
	ReconciliationService *service.ReconciliationService
	PaymentService        *service.PaymentService
	PurchaseService       *service.PurchaseService
	ProductService        *service.ProductService
	CustomerService       *service.CustomerService
	PolicyService         *service.PolicyService
}

// NewContainer wires everything on the global database
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	return NewContainerWith(cfg, models.DB, queueClient, authzService)
}

// NewContainerWith wires a container on db. A nil authzService falls back to the static role policy.
func NewContainerWith(cfg *config.Config, db *gorm.DB, queueClient *queue.Client, authzService *authz.Service) *Container {
	c := &Container{
		Config:       cfg,
		DB:           db,
		QueueClient:  queueClient,
		AuthzService: authzService,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := c.DB
	c.Transactor = repository.NewTransactor(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AuditRepo = repository.NewAuditRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.ExceptionRepo = repository.NewExceptionRepository(db)
	c.RouteRepo = repository.NewRouteRepository(db)
	c.ReconciliationRepo = repository.NewReconciliationRepository(db)
}

func (c *Container) initServices() {
	authorizer := c.authorizer()
	statsTTL := time.Duration(c.Config.Reconciliation.StatsCacheSeconds) * time.Second

	c.StockService = service.NewStockService(c.Transactor, c.ProductRepo, c.QueueClient, c.Config.Stock.LowStockAlerts)
	c.BalanceService = service.NewBalanceService(c.Transactor, c.CustomerRepo, c.PaymentRepo)
	c.AuditService = service.NewAuditService(c.AuditRepo, c.CustomerRepo, c.UserRepo, c.ProductRepo)
	c.OrderService = service.NewOrderService(
		c.Transactor,
		c.OrderRepo,
		c.ProductRepo,
		c.CustomerRepo,
		c.UserRepo,
		c.AuditRepo,
		c.PaymentRepo,
		c.ExceptionRepo,
		c.RouteRepo,
		c.StockService,
		c.BalanceService,
		c.AuditService,
		service.NewStatusPolicy(c.Config.Order.StatusPolicy),
		authorizer,
	)
	c.ExceptionService = service.NewExceptionService(c.Transactor, c.ExceptionRepo, c.OrderRepo, c.StockService, c.BalanceService, c.AuditService, authorizer)
	c.RouteService = service.NewRouteService(c.Transactor, c.RouteRepo, c.OrderRepo, c.OrderService, authorizer)
	c.ReconciliationService = service.NewReconciliationService(c.Transactor, c.ReconciliationRepo, c.RouteRepo, c.OrderRepo, c.UserRepo, c.RouteService, authorizer, statsTTL)
	c.PaymentService = service.NewPaymentService(c.Transactor, c.PaymentRepo, c.CustomerRepo, c.OrderRepo, c.BalanceService, authorizer)
	c.PurchaseService = service.NewPurchaseService(c.Transactor, c.PurchaseRepo, c.ProductRepo, c.StockService)
	c.ProductService = service.NewProductService(c.ProductRepo, c.StockService, authorizer)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.BalanceService, authorizer)
	c.PolicyService = service.NewPolicyService(c.policyStore(), authorizer)
}

// policyStore nil without casbin so policy administration reports it as unavailable
func (c *Container) policyStore() service.PolicyStore {
	if c.AuthzService == nil {
		return nil
	}
	return c.AuthzService
}

// authorizer keeps a missing casbin service a nil interface so services use the static policy
func (c *Container) authorizer() service.Authorizer {
	if c.AuthzService == nil {
		return nil
	}
	return c.AuthzService
}
