package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/domain/operator"
	"github.com/vendaria/pos-api/internal/storage/postgres"
)

type productJSON struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Price decimal.Decimal  `json:"price"`
	Cost  *decimal.Decimal `json:"cost"`
	Stock int              `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "operator API key to seed (or POS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("POS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or POS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("POS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalogRepo := postgres.NewCatalogRepository(pool)

	if err := seedProducts(ctx, catalogRepo, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedServices(ctx, catalogRepo); err != nil {
		return errors.Wrap(err, "seed services")
	}

	if err := seedOperator(ctx, postgres.NewOperatorRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed operator")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.CatalogRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.UpsertProduct(ctx, catalog.Product{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price,
			Cost:  p.Cost,
			Stock: p.Stock,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedServices(ctx context.Context, repo *postgres.CatalogRepository) error {
	slog.Info("seeding services")

	services := []catalog.ServiceItem{
		{ID: "svc-delivery", Name: "Home delivery", Price: decimal.NewFromInt(10)},
		{ID: "svc-assembly", Name: "Assembly", Price: decimal.NewFromInt(25)},
		{ID: "svc-giftwrap", Name: "Gift wrapping", Price: decimal.NewFromFloat(3.50)},
	}

	for _, s := range services {
		if err := repo.UpsertService(ctx, s); err != nil {
			return errors.Wrapf(err, "upsert service %s", s.ID)
		}

		slog.Info("upserted service", slog.String("id", s.ID), slog.String("name", s.Name))
	}

	return nil
}

func seedOperator(ctx context.Context, repo *postgres.OperatorRepository, apiKey, pepper string) error {
	slog.Info("seeding default operator")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.Upsert(ctx, operator.Operator{
		ID:             "default",
		Name:           "Default till operator",
		KeyHash:        keyHash,
		MaxDiscountPct: decimal.NewFromInt(15),
		Active:         true,
	}); err != nil {
		return errors.Wrap(err, "upsert default operator")
	}

	slog.Info("upserted operator", slog.String("id", "default"))

	return nil
}
