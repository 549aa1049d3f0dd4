package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/router"
)

func main() {
	var tokenTTL time.Duration
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed development tokens")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	users := []models.User{
		{Name: "Administrador", Role: constants.RoleAdmin, Active: true},
		{Name: "Encargado", Role: constants.RoleManager, Active: true},
		{Name: "Vendedor", Role: constants.RoleSeller, Active: true},
		{Name: "Repartidor", Role: constants.RoleCourier, Active: true},
	}
	for i := range users {
		var existing models.User
		if err := models.DB.Where("name = ? AND role = ?", users[i].Name, users[i].Role).First(&existing).Error; err == nil {
			users[i] = existing
			stdLog.Printf("User already exists: %s", existing.Name)
			continue
		}
		if err := models.DB.Create(&users[i]).Error; err != nil {
			stdLog.Fatalf("Failed to create user %s: %v", users[i].Name, err)
		}
		stdLog.Printf("Created user: %s (%s)", users[i].Name, users[i].Role)
	}

	customers := []models.Customer{
		{Name: "Kiosco La Esquina", Address: "Belgrano 55", Phone: "381-4001122", CreditLimit: models.MustMoney("50000"), CreditDays: 15},
		{Name: "Almacen Don Pepe", Address: "San Martin 120", Phone: "381-4003344", CreditLimit: models.MustMoney("120000"), CreditDays: 30},
		{Name: "Bar El Trebol", Address: "Mitre 890", Phone: "381-4005566"},
	}
	for _, customer := range customers {
		var existing models.Customer
		if err := models.DB.Where("name = ?", customer.Name).First(&existing).Error; err == nil {
			stdLog.Printf("Customer already exists: %s", customer.Name)
			continue
		}
		if err := models.DB.Create(&customer).Error; err != nil {
			stdLog.Printf("Failed to create customer %s: %v", customer.Name, err)
			continue
		}
		stdLog.Printf("Created customer: %s", customer.Name)
	}

	products := []models.Product{
		{Name: "Agua Mineral 2L", SKU: "AGU-2000", Stock: 240, MinStock: 48, Price: models.MustMoney("900"), Cost: models.MustMoney("550"), Active: true},
		{Name: "Gaseosa Cola 1.5L", SKU: "GAS-1500", Stock: 180, MinStock: 36, Price: models.MustMoney("1600"), Cost: models.MustMoney("1050"), Active: true},
		{Name: "Cerveza Rubia 1L", SKU: "CER-1000", Stock: 120, MinStock: 24, Price: models.MustMoney("2100"), Cost: models.MustMoney("1400"), Active: true},
		{Name: "Vino Malbec 750ml", SKU: "VIN-0750", Stock: 60, MinStock: 12, Price: models.MustMoney("4500"), Cost: models.MustMoney("2900"), Active: true},
		{Name: "Fernet 750ml", SKU: "FER-0750", Stock: 10, MinStock: 12, Price: models.MustMoney("9800"), Cost: models.MustMoney("7200"), Active: true},
	}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("sku = ?", product.SKU).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", product.SKU)
			continue
		}
		if err := models.DB.Create(&product).Error; err != nil {
			stdLog.Printf("Failed to create product %s: %v", product.SKU, err)
			continue
		}
		stdLog.Printf("Created product: %s", product.SKU)
	}

	fmt.Println("Development tokens:")
	for _, user := range users {
		token, err := router.IssueActorToken(cfg.ActorToken, user.ID, user.Role, tokenTTL)
		if err != nil {
			stdLog.Fatalf("Failed to issue token for %s: %v", user.Name, err)
		}
		fmt.Printf("  %-8s id=%d  %s\n", user.Role, user.ID, token)
	}
	stdLog.Printf("Seed completed")
}
