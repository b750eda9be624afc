package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/manveru/faker"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/registry"
	"github.com/noah-isme/admin-api/internal/repository"
	"github.com/noah-isme/admin-api/internal/service"
	"github.com/noah-isme/admin-api/pkg/config"
	"github.com/noah-isme/admin-api/pkg/database"
	"github.com/noah-isme/admin-api/pkg/logger"
)

// seed creates a superuser and, with -demo, a set of fake demo records written through the
// same validation path as the HTTP API.
func main() {
	email := flag.String("email", "admin@example.com", "superuser email")
	password := flag.String("password", "admin12345", "superuser password")
	demo := flag.Bool("demo", false, "seed demo models")
	count := flag.Int("count", 20, "number of demo models to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	if err := seedSuperuser(ctx, users, *email, *password); err != nil {
		sugar.Fatalw("seed superuser", "error", err)
	}
	sugar.Infow("superuser ready", "email", *email)

	if !*demo {
		return
	}

	reg := registry.New(cfg.Admin.ListPerPage)
	registry.RegisterDemo(reg, cfg.Admin.DashboardPrefix)
	registry.RegisterBuiltins(reg)

	noCache := service.NewCacheService(nil, nil, 0, logr, false)
	records := service.NewRecordService(db, reg, repository.NewRecordRepository(db), nil, noCache, logr)

	fake, err := faker.New("en")
	if err != nil {
		sugar.Fatalw("init faker", "error", err)
	}
	s := &seeder{records: records, fake: fake, rnd: rand.New(rand.NewSource(time.Now().UnixNano())), logger: logr}
	if err := s.run(ctx, *count); err != nil {
		sugar.Fatalw("seed demo data", "error", err)
	}
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

func seedSuperuser(ctx context.Context, users userStore, email, password string) error {
	existing, err := users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	})
}

type recordCreator interface {
	Create(ctx context.Context, modelID string, payload map[string]interface{}) (*service.MutationResult, error)
}

type seeder struct {
	records recordCreator
	fake    *faker.Faker
	rnd     *rand.Rand
	logger  *zap.Logger
}

func (s *seeder) run(ctx context.Context, count int) error {
	types, err := s.createNamed(ctx, "demo.type", 4, s.fake.CompanyName)
	if err != nil {
		return err
	}
	classes, err := s.createNamed(ctx, "demo.classification", 3, func() string { return strings.Join(s.fake.Words(2, false), " ") })
	if err != nil {
		return err
	}
	levels, err := s.createNamed(ctx, "demo.level", 3, func() string { return fmt.Sprintf("L%d", s.rnd.Intn(100)) })
	if err != nil {
		return err
	}
	countries, err := s.createNamed(ctx, "demo.country", 5, s.fake.City)
	if err != nil {
		return err
	}

	for i, country := range countries {
		_, err := s.records.Create(ctx, "demo.countryprofile", map[string]interface{}{
			"country": country,
			"level":   levels[i%len(levels)],
			"type":    types[i%len(types)],
			"area":    s.rnd.Intn(100000),
		})
		if err != nil {
			return fmt.Errorf("create country profile: %w", err)
		}
	}

	colors := []string{"Blue", "Red"}
	for i := 0; i < count; i++ {
		payload := map[string]interface{}{
			"name":           fmt.Sprintf("%s %d", s.fake.Name(), i),
			"type":           types[s.rnd.Intn(len(types))],
			"color":          colors[s.rnd.Intn(len(colors))],
			"email":          s.fake.Email(),
			"ordering":       i,
			"range_number":   5 + s.rnd.Intn(6),
			"amount":         fmt.Sprintf("%d.%02d", s.rnd.Intn(10000), s.rnd.Intn(100)),
			"comment":        s.fake.Sentence(8, false),
			"is_active":      s.rnd.Intn(4) > 0,
			"date":           time.Now().AddDate(0, 0, -s.rnd.Intn(365)).Format(service.DateLayout),
			"time":           time.Now().Add(-time.Duration(s.rnd.Intn(86400)) * time.Second).Format(service.TimeLayout),
			"classification": []interface{}{classes[s.rnd.Intn(len(classes))]},
			"metadata":       map[string]interface{}{"source": "seed", "index": i},
			"html":           "<p>" + s.fake.Paragraph(2, false) + "</p>",
		}
		if _, err := s.records.Create(ctx, "demo.demomodel", payload); err != nil {
			return fmt.Errorf("create demo model %d: %w", i, err)
		}
	}
	s.logger.Info("demo data seeded", zap.Int("models", count), zap.Int("countries", len(countries)))
	return nil
}

func (s *seeder) createNamed(ctx context.Context, modelID string, n int, name func() string) ([]interface{}, error) {
	pks := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		result, err := s.records.Create(ctx, modelID, map[string]interface{}{"name": name()})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", modelID, err)
		}
		pks = append(pks, result.PK)
	}
	return pks, nil
}
