package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/field-guardian/field-guardian-api/internal/analysis"
	"github.com/field-guardian/field-guardian-api/internal/archive"
	"github.com/field-guardian/field-guardian-api/internal/delivery"
	"github.com/field-guardian/field-guardian-api/internal/geometry"
	"github.com/field-guardian/field-guardian-api/internal/properties"
	"github.com/field-guardian/field-guardian-api/internal/storage"
)

func printBanner() {
	figure1 := figure.NewFigure("Field", "isometric1", true)
	figure2 := figure.NewFigure("Guardian", "isometric1", true)
	bannercolor.Green(figure1.String())
	bannercolor.Green(figure2.String())
	fmt.Println()
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on process environment")
	}

	port := flag.Int("port", 8080, "HTTP listen port")
	flag.Parse()

	printBanner()

	arc, err := archive.New(archive.ConfigFromEnv())
	if err != nil {
		fmt.Printf("Failed to initialize satellite archive client: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.OpenSQLite(properties.DatabasePath())
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fields := geometry.NewDirectorySource(properties.FieldsPath())
	service := analysis.NewService(arc, store)
	handler := delivery.NewHandler(service, store, fields)

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("Listening on %s\n", addr)
	if err := handler.Router().Run(addr); err != nil {
		fmt.Printf("Server stopped: %v\n", err)
		os.Exit(1)
	}
}
