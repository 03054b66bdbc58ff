package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/catalog"
	"github.com/vendexhq/commerce-engine/internal/config"
	"github.com/vendexhq/commerce-engine/internal/store"
)

// catalog-import runs the bulk CSV import from the command line, for
// operators who prefer a shell over the admin upload endpoint.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	filePath := flag.String("file", "data/import.csv", "path to the product CSV")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("Database is not reachable")
	}
	if err := store.CreateTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	file, err := os.Open(*filePath)
	if err != nil {
		logger.WithError(err).WithField("file", *filePath).Fatal("Failed to open import file")
	}
	defer file.Close()

	productStore := store.NewPostgresProductStore(db, logger)
	importer := catalog.NewImporter(productStore, logger)

	result, err := importer.ImportCSV(context.Background(), file)
	if err != nil {
		logger.WithError(err).Fatal("Import failed")
	}

	logger.WithFields(logrus.Fields{
		"file":      *filePath,
		"processed": result.Processed,
		"errors":    result.Errors,
	}).Info("Bulk import finished")

	if result.Errors > 0 {
		os.Exit(1)
	}
}
