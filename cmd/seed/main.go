package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/factura-admin/api/internal/billing"
	"github.com/factura-admin/api/internal/config"
	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/store"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	demo := flag.Bool("demo", false, "Also seed demo clients and orders")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@factura.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Admin"
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	var st store.Store
	switch cfg.StoreBackend {
	case "firestore":
		fs, err := store.NewFirestore(ctx, cfg.GoogleProjectID, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Fatalf("Unable to connect to Firestore: %v", err)
		}
		defer fs.Close()
		st = fs
	case "memory":
		log.Fatal("Seeding the in-memory backend is pointless: it starts empty on every run. Set STORE_BACKEND=firestore.")
	default:
		log.Fatalf("Unknown STORE_BACKEND %q (want memory or firestore)", cfg.StoreBackend)
	}

	userID, err := seedAdmin(ctx, st, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	log.Printf("Admin user ready: %s (%s)", *email, userID)

	if *demo {
		if err := seedDemoData(ctx, st); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
		log.Println("Demo clients and orders seeded")
	}

	log.Println("Seed complete")
}

// seedAdmin creates the admin user unless one with the same email already
// exists, so the command is safe to re-run.
func seedAdmin(ctx context.Context, st store.Store, email, password, name string) (string, error) {
	existing, err := st.GetWhere(ctx, store.CollectionUsers, store.Where("email", email))
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := model.User{
		Email:          email,
		FullName:       name,
		HashedPassword: string(hashed),
	}

	fields := user.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	return st.Insert(ctx, store.CollectionUsers, fields)
}

func seedDemoData(ctx context.Context, st store.Store) error {
	clients := []model.Client{
		{
			ReferenceCode: "ACME-001",
			Name:          "Acme Corporation",
			Email:         "billing@acme.example",
			Phone:         "+1 555 0100",
			Location:      "Springfield",
			Status:        enum.ClientStatusActive,
		},
		{
			ReferenceCode: "GLOBEX-002",
			Name:          "Globex Industries",
			Email:         "accounts@globex.example",
			Phone:         "+1 555 0101",
			Location:      "Cypress Creek",
			Status:        enum.ClientStatusActive,
		},
		{
			ReferenceCode: "INITECH-003",
			Name:          "Initech LLC",
			Location:      "Austin",
			Status:        enum.ClientStatusInactive,
		},
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return err
	}

	for _, c := range clients {
		existing, err := st.GetWhere(ctx, store.CollectionClients, store.Where("referenceCode", c.ReferenceCode))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		fields := c.Fields()
		fields["createdAt"] = store.ServerTimestamp
		fields["updatedAt"] = store.ServerTimestamp

		id, err := st.Insert(ctx, store.CollectionClients, fields)
		if err != nil {
			return err
		}
		c.ID = id

		if c.Status == enum.ClientStatusActive {
			if err := seedDemoOrder(ctx, st, node, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedDemoOrder writes one Pending order so the dashboard has something
// to process right away.
func seedDemoOrder(ctx context.Context, st store.Store, node *snowflake.Node, c model.Client) error {
	items := []model.LineItem{
		{
			ID:          uuid.NewString(),
			Description: "Consulting services",
			Quantity:    decimal.NewFromInt(10),
			UnitPrice:   decimal.RequireFromString("120.00"),
		},
		{
			ID:          uuid.NewString(),
			Description: "Infrastructure hosting",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("89.50"),
		},
	}
	for i := range items {
		items[i].TotalPrice = billing.LineTotal(items[i])
	}

	taxRate := model.DefaultTaxRate
	totals := billing.ComputeTotals(items, taxRate)

	order := model.Order{
		ClientID:            c.ID,
		ClientReferenceCode: c.ReferenceCode,
		ClientName:          c.Name,
		OrderNumber:         fmt.Sprintf("ORD-%s", strings.ToUpper(node.Generate().Base36())),
		Items:               items,
		Subtotal:            totals.Subtotal,
		TaxRate:             taxRate,
		TaxAmount:           totals.TaxAmount,
		TotalAmount:         totals.TotalAmount,
		Status:              enum.OrderStatusPending,
	}

	fields := order.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	_, err := st.Insert(ctx, store.CollectionOrders, fields)
	return err
}
