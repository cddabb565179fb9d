package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/factura-admin/api/internal/config"
	"github.com/factura-admin/api/internal/router"
	"github.com/factura-admin/api/internal/store"
	"github.com/factura-admin/api/internal/ws"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real deployments set env vars directly
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
		log.Printf("Using Firestore backend (project %s)", cfg.GoogleProjectID)
	case "memory":
		st = store.NewMemory()
		log.Println("Using in-memory backend; data is lost on restart")
	default:
		log.Fatalf("Unknown STORE_BACKEND %q (want memory or firestore)", cfg.StoreBackend)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("Failed to create snowflake node: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, st, node, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
