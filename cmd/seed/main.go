package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/quickfix-backend/internal/config"
	"github.com/shinyyama/quickfix-backend/internal/db"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
)

type seedRepairer struct {
	ID          string
	Name        string
	Categories  []string
	Skills      []string
	ServiceArea float64
	Lat, Lon    float64
	Area        string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repos, closeFn, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	force := strings.EqualFold(os.Getenv("FORCE_SEED"), "true")
	profiles := buildSeedRepairers()
	created, skipped := 0, 0
	for _, p := range profiles {
		if !force {
			_, err := repos.Repairers.FindByID(ctx, p.ID)
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("lookup %s: %w", p.ID, err)
			}
		}
		if err := repos.Repairers.Save(ctx, p); err != nil {
			return fmt.Errorf("save %s: %w", p.ID, err)
		}
		created++
	}
	log.Printf("seeded repairers created=%d skipped=%d (set FORCE_SEED=true to overwrite)", created, skipped)
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, func(), error) {
	if cfg.StoreDriver == config.DriverMySQL {
		gdb, err := db.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		if err := repository.AutoMigrate(gdb); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("sql db: %w", err)
		}
		return repository.NewGormRepositories(gdb), func() { _ = sqlDB.Close() }, nil
	}
	app, err := db.NewFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("firebase app: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("firestore: %w", err)
	}
	return repository.NewFirestoreRepositories(fs), func() { _ = fs.Close() }, nil
}

func buildSeedRepairers() []*model.RepairerProfile {
	seeds := []seedRepairer{
		{"seed-repairer-01", "Asha Electronics", []string{"electronics", "appliances"}, []string{"TV repair", "Microwave"}, 12, 12.9716, 77.5946, "MG Road, Bengaluru"},
		{"seed-repairer-02", "Ravi Woodworks", []string{"furniture", "carpentry"}, []string{"Joinery", "Polishing"}, 8, 12.9352, 77.6245, "Koramangala, Bengaluru"},
		{"seed-repairer-03", "Stitch & Mend", []string{"clothing"}, []string{"Alterations", "Zip replacement"}, 5, 12.9784, 77.6408, "Indiranagar, Bengaluru"},
		{"seed-repairer-04", "Spark Electricals", []string{"electrical", "appliances"}, []string{"Wiring", "Fans"}, 15, 13.0358, 77.5970, "Hebbal, Bengaluru"},
		{"seed-repairer-05", "Flowfix Plumbing", []string{"plumbing"}, []string{"Leaks", "Geysers"}, 10, 12.9141, 77.6101, "BTM Layout, Bengaluru"},
		{"seed-repairer-06", "Goldsmith Lane", []string{"jewelry"}, []string{"Resizing", "Clasp repair"}, 6, 19.0760, 72.8777, "Mumbai"},
		{"seed-repairer-07", "AutoCare Garage", []string{"automotive"}, []string{"Brakes", "Batteries"}, 20, 19.1136, 72.8697, "Andheri, Mumbai"},
		{"seed-repairer-08", "FixAll Services", []string{"other", "electronics"}, []string{"General repairs"}, 10, 28.6139, 77.2090, "Connaught Place, Delhi"},
	}
	out := make([]*model.RepairerProfile, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, &model.RepairerProfile{
			ID:          s.ID,
			DisplayName: s.Name,
			Bio:         s.Name + " serves " + s.Area + ".",
			Skills:      s.Skills,
			Categories:  s.Categories,
			ServiceArea: s.ServiceArea,
			Location:    &model.GeoPoint{Latitude: s.Lat, Longitude: s.Lon, Address: s.Area},
			Rating:      4.5,
		})
	}
	return out
}
