package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toko-beras-pos/internal/config"
	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/handler"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/repository/memory"
	"toko-beras-pos/internal/service"
	"toko-beras-pos/internal/ws"
	"toko-beras-pos/pkg/database"
	"toko-beras-pos/pkg/jwt"
	"toko-beras-pos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load Env
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Info(".env file not found, relying on system env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := jwt.NewManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		log.WithError(err).Fatal("JWT_SECRET must be set")
	}

	// 2. Storage
	store, access := openStore(cfg, log)
	seedAccess(ctx, access, cfg, log)

	// 3. Events: websocket hub, plus redis when configured
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	var publisher event.Publisher = wsHub
	if cfg.RedisAddr != "" {
		redisPub := event.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel)
		if err := redisPub.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, events stay local")
			redisPub.Close()
		} else {
			defer redisPub.Close()
			publisher = event.Multi(wsHub, redisPub)
			log.WithField("channel", cfg.RedisChannel).Info("publishing events to redis")
		}
	}

	// 4. Dependency Injection (Wiring Layers)
	ledger := service.NewLedgerService(store)
	inventory := service.NewInventoryService(store, ledger, publisher, log)
	catalog := service.NewCatalogService(store, inventory, publisher, log)
	sales := service.NewSalesService(store, inventory, publisher, log)
	dashboard := service.NewDashboardService(store)
	auth := service.NewAuthService(access.users, tokens)

	router := handler.Router{
		Auth:      handler.NewAuthHandler(auth, log),
		Products:  handler.NewProductHandler(catalog, inventory, ledger, log),
		Stock:     handler.NewStockHandler(inventory, ledger, log),
		Sales:     handler.NewSaleHandler(sales, log),
		Dashboard: handler.NewDashboardHandler(dashboard, log),
		Roles:     handler.NewRoleHandler(access.roles, access.privileges, log),
		UserRepo:  access.users,
		Tokens:    tokens,
		Hub:       wsHub,
	}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Toko Beras POS v1.0",
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	router.Register(app)

	// 6. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()
	log.WithFields(logrus.Fields{"addr": cfg.Address(), "backend": cfg.StoreBackend}).Info("server started")

	<-ctx.Done()

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server exited")
}

// openStore picks the backend named by STORE_BACKEND.
func openStore(cfg config.Config, log *logrus.Logger) (repository.Store, accessRepos) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("STORE_BACKEND=memory: data is lost on restart")
		return memory.New(), accessRepos{
			privileges: memory.NewPrivilegeRepo(),
			roles:      memory.NewRoleRepo(),
			users:      memory.NewUserRepo(),
		}
	}

	db := database.MustConnect(cfg.DSN(), log)
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	if err := db.AutoMigrate(
		&model.Product{}, &model.ProductPriceHistory{}, &model.StockMovement{},
		&model.Sale{}, &model.SaleItem{},
		&model.User{}, &model.Privilege{}, &model.Role{},
	); err != nil {
		log.WithError(err).Fatal("auto migrate failed")
	}
	return repository.NewStore(db), accessRepos{
		privileges: repository.NewPrivilegeRepo(db),
		roles:      repository.NewRoleRepo(db),
		users:      repository.NewUserRepo(db),
	}
}
