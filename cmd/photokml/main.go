package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alexander-D-Karpov/photokml/internal/config"
	"github.com/Alexander-D-Karpov/photokml/internal/database"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/Alexander-D-Karpov/photokml/internal/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	profileFile := flag.String("profile", "", "Profile file (YAML, JSON or TOML)")
	profileName := flag.String("profile-name", "", "Name of a profile stored in the database")
	output := flag.String("out", "", "Output KML file")
	validate := flag.Bool("validate", false, "Validate the profile and exit")
	header := flag.Bool("header", false, "Print the profile summary and exit")
	saveProfile := flag.Bool("save-profile", false, "Store the profile loaded with -profile in the database")
	listProfiles := flag.Bool("list-profiles", false, "List the profiles stored in the database")
	history := flag.Int("history", 0, "Show the last N runs of the profile")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Builds a KML map from the geotags of a photo collection.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("interrupted, cancelling run")
		cancel()
	}()

	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	if *listProfiles {
		store := profileStore(db, logger)
		names, err := store.List(ctx)
		if err != nil {
			logger.Fatal("failed to list profiles", zap.Error(err))
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	p, err := loadProfile(ctx, *profileFile, *profileName, db, logger)
	if err != nil {
		logger.Fatal("failed to load profile", zap.Error(err))
	}

	switch {
	case *header:
		fmt.Print(profile.Header(p))
		return
	case *validate:
		if err := profile.Validate(p); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("profile %s is valid\n", p.Name)
		return
	case *saveProfile:
		if err := profile.Validate(p); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err := profileStore(db, logger).Save(ctx, p); err != nil {
			logger.Fatal("failed to save profile", zap.Error(err))
		}
		logger.Info("profile saved", zap.String("profile", p.Name))
		return
	case *history > 0:
		if db == nil {
			logger.Fatal("DATABASE_URL is required for -history")
		}
		reports, err := database.NewRunStore(db.Pool()).Recent(ctx, p.Name, *history)
		if err != nil {
			logger.Fatal("failed to load run history", zap.Error(err))
		}
		for _, r := range reports {
			fmt.Printf("%s  %s  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.Output, r.Summary())
		}
		return
	}

	if *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	metrics := services.NewMetrics()
	exif := services.NewExifService(cfg.MaxFileSize, cfg.FileTimeout)
	scanner := services.NewScannerService(exif, metrics, cfg.Workers, logger)
	opts := services.PipelineOptions{
		Metrics:     metrics,
		MetricsFile: cfg.MetricsFile,
		Log:         logger,
	}
	if db != nil {
		opts.Runs = database.NewRunStore(db.Pool())
	}
	pipeline := services.NewPipelineService(scanner, opts)

	report, err := pipeline.Run(ctx, p, *output)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Fatal("run failed", zap.Error(err))
	}

	fmt.Printf("%s: %s\n", report.Output, report.Summary())
	for _, o := range report.Skipped {
		fmt.Printf("  skipped %s (%s)\n", o.Path, o.Kind)
	}
	for _, o := range report.Warnings {
		fmt.Printf("  placed at fallback %s (%s)\n", o.Path, o.Kind)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if cfg.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func profileStore(db *database.DB, logger *zap.Logger) *database.ProfileStore {
	if db == nil {
		logger.Fatal("DATABASE_URL is required for stored profiles")
	}
	return database.NewProfileStore(db.Pool())
}

func loadProfile(ctx context.Context, file, name string, db *database.DB, logger *zap.Logger) (*profile.Profile, error) {
	switch {
	case file != "" && name != "":
		return nil, fmt.Errorf("use either -profile or -profile-name, not both")
	case file != "":
		return profile.LoadFile(file)
	case name != "":
		return profileStore(db, logger).Get(ctx, name)
	}
	return nil, fmt.Errorf("-profile or -profile-name is required")
}
