package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"google.golang.org/api/option"

	"Maintenance/Config"
	"Maintenance/CronJobs"
	"Maintenance/FiberConfig"
	"Maintenance/Models"
	"Maintenance/Notify"
	"Maintenance/Records"
	"Maintenance/Report"
	"Maintenance/Sheets"
	"Maintenance/Storage"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	db, err := Models.Connect(cfg.LedgerPath)
	if err != nil {
		log.Fatal(err)
	}
	ledger, err := Storage.NewLedger(db, filepath.Join(cfg.TempDir, "maintenance"))
	if err != nil {
		log.Fatal(err)
	}

	tmpl, err := Models.LoadTemplate(cfg.ChecklistTemplate)
	if err != nil {
		log.Fatal(err)
	}

	policy, err := Records.ParsePolicy(cfg.UnknownFieldPolicy)
	if err != nil {
		log.Fatal(err)
	}
	store, bootstrap, err := openSheets(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	svc := Records.NewService(store, cfg.Sheets, policy, tmpl)
	if bootstrap != nil {
		if err := svc.Bootstrap(bootstrap); err != nil {
			log.Fatal(err)
		}
	}

	photos, err := openPhotos(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	sweeper := CronJobs.NewTempSweeper(ledger, cfg.TempMaxAge, true)
	if err := sweeper.Start(cfg.TempSweepSchedule); err != nil {
		log.Fatal(err)
	}
	defer sweeper.Stop()

	app := FiberConfig.NewApp(FiberConfig.Deps{
		Config:    cfg,
		Service:   svc,
		Template:  tmpl,
		Photos:    photos,
		Fetcher:   Storage.NewFetcher(photos, ledger),
		Ledger:    ledger,
		Generator: Report.NewGenerator(tmpl),
		Notifier:  notifiers(cfg),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("[server] shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("[server] shutdown: %v", err)
		}
	}()

	fmt.Println("Server Up...")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// openSheets returns the configured sheet store and, for local workbooks, the
// function that creates missing sheets.
func openSheets(ctx context.Context, cfg Config.Config) (Sheets.Store, func(string, []string) error, error) {
	switch cfg.SheetsBackend {
	case "excel":
		store := Sheets.NewExcelStore(cfg.ExcelPath)
		log.Printf("[sheets] using workbook %s", cfg.ExcelPath)
		return store, store.EnsureSheet, nil
	default:
		store, err := Sheets.NewGoogleStore(ctx, cfg.TokenSource(ctx, Sheets.SheetsScope), cfg.SpreadsheetID)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[sheets] using spreadsheet %s", cfg.SpreadsheetID)
		return store, nil, nil
	}
}

func openPhotos(ctx context.Context, cfg Config.Config) (Storage.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "firebase":
		var opts []option.ClientOption
		switch {
		case cfg.FirebaseCredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
		case cfg.HasCredentials():
			opts = append(opts, option.WithTokenSource(cfg.TokenSource(ctx, "https://www.googleapis.com/auth/devstorage.read_write")))
		}
		log.Printf("[photos] using firebase bucket %s", cfg.FirebaseBucket)
		return Storage.NewFirebaseStore(ctx, cfg.FirebaseBucket, cfg.PhotoPublic, opts...)
	case "local":
		log.Printf("[photos] using directory %s", cfg.PhotoDir)
		return Storage.NewLocalStore(cfg.PhotoDir)
	default:
		log.Printf("[photos] using drive folder %s", cfg.DriveFolderID)
		return Storage.NewDriveStore(ctx, cfg.TokenSource(ctx, Storage.DriveScope), cfg.DriveFolderID, cfg.PhotoPublic)
	}
}

func notifiers(cfg Config.Config) Notify.Notifier {
	var out Notify.Multi
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		out = append(out, Notify.NewSlack(cfg.SlackToken, cfg.SlackChannel))
		log.Printf("[notify] slack channel %s", cfg.SlackChannel)
	}
	if cfg.SMTP.Enabled() {
		out = append(out, Notify.NewEmail(cfg.SMTP))
		log.Printf("[notify] email to %d recipient(s)", len(cfg.SMTP.Recipients))
	}
	return out
}
