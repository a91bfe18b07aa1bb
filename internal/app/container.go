package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/api"
	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/booking"
	"github.com/nekogravitycat/driving-school-backend/internal/events"
	"github.com/nekogravitycat/driving-school-backend/internal/jobs"
	"github.com/nekogravitycat/driving-school-backend/internal/resource"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
	"github.com/nekogravitycat/driving-school-backend/internal/school"
	"github.com/nekogravitycat/driving-school-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	DefaultTimezone         string
	CancelReasonMinLength   int
	StudentConflictSeverity string
	WindowConflictSeverity  string
	CompletionCron          string

	// Publisher overrides the MQTT publisher built from the MQTT settings.
	Publisher       events.Publisher
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTTopicPrefix string
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	Registry       *schedule.Registry
	BookingService booking.Service
	Scheduler      *jobs.Scheduler
	Publisher      events.Publisher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	rules, err := schedulingRules(cfg)
	if err != nil {
		return nil, err
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher, err = newPublisher(cfg)
		if err != nil {
			return nil, err
		}
	}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// School Module; a school update is applied to its calendar in the registry built below.
	var registry *schedule.Registry
	schoolRepo := school.NewPgxRepository(cfg.DBPool)
	schoolService := school.NewService(schoolRepo, cfg.DefaultTimezone, school.WatcherFunc(func(ctx context.Context, id string) {
		registry.SchoolChanged(ctx, id)
	}))

	// Resource + Booking Modules share the per-school calendars.
	resRepo := resource.NewPgxRepository(cfg.DBPool)
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	registry = schedule.NewRegistry(bookingRepo, resRepo, schoolService, rules)

	resService := resource.NewService(resRepo, registry)
	bookingService := booking.NewService(bookingRepo, registry, schoolService, publisher)

	// Background completion of past lessons.
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load default timezone: %w", err)
	}
	scheduler, err := jobs.NewScheduler(cfg.CompletionCron, loc, bookingService)
	if err != nil {
		return nil, err
	}

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		UserService:     userService,
		SchoolService:   schoolService,
		ResourceService: resService,
		BookingService:  bookingService,
		JWTManager:      jwtManager,
	})

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		Registry:       registry,
		BookingService: bookingService,
		Scheduler:      scheduler,
		Publisher:      publisher,
	}, nil
}

func schedulingRules(cfg Config) (schedule.Rules, error) {
	rules := schedule.DefaultRules()
	if cfg.CancelReasonMinLength > 0 {
		rules.CancelReasonMinLength = cfg.CancelReasonMinLength
	}
	if cfg.StudentConflictSeverity != "" {
		sev, err := schedule.ParseSeverity(cfg.StudentConflictSeverity)
		if err != nil {
			return rules, fmt.Errorf("student conflict severity: %w", err)
		}
		rules.Policy.StudentOverlap = sev
	}
	if cfg.WindowConflictSeverity != "" {
		sev, err := schedule.ParseSeverity(cfg.WindowConflictSeverity)
		if err != nil {
			return rules, fmt.Errorf("window conflict severity: %w", err)
		}
		rules.Policy.OutsideWindow = sev
	}
	return rules, nil
}

func newPublisher(cfg Config) (events.Publisher, error) {
	if cfg.MQTTBrokerURL == "" {
		log.Info("MQTT_BROKER_URL not set, booking events are not published")
		return events.Nop{}, nil
	}
	p, err := events.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", err)
	}
	return p, nil
}
