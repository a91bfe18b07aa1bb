package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
	"github.com/nekogravitycat/driving-school-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/driving-school-backend/internal/booking/http"
	"github.com/nekogravitycat/driving-school-backend/internal/resource"
	resourceHttp "github.com/nekogravitycat/driving-school-backend/internal/resource/http"
	"github.com/nekogravitycat/driving-school-backend/internal/school"
	schoolHttp "github.com/nekogravitycat/driving-school-backend/internal/school/http"
	"github.com/nekogravitycat/driving-school-backend/internal/user"
	userHttp "github.com/nekogravitycat/driving-school-backend/internal/user/http"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService     user.Service
	SchoolService   school.Service
	ResourceService resource.Service
	BookingService  booking.Service
	JWTManager      *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: plain gin access log in development, structured logrus entries in production.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	if cfg.IsProduction {
		r.Use(RequestLogger(), gin.Recovery())
	} else {
		r.Use(gin.Logger(), gin.Recovery())
	}

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg.IsProduction, cfg.ProdOrigins)
	if len(corsConfig.AllowOrigins) == 0 {
		// No browser origin configured: API clients only.
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	schoolHandler := schoolHttp.NewSchoolHandler(cfg.SchoolService)
	resourceHandler := resourceHttp.NewHandler(cfg.ResourceService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		schoolHttp.RegisterRoutes(v1, schoolHandler, authMiddleware)
		resourceHttp.RegisterRoutes(v1, resourceHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}

func allowedOrigins(isProduction bool, prodOrigins string) []string {
	if !isProduction {
		return []string{
			"http://localhost:3000", // Web UI dev server
			"http://localhost:8081", // Swagger
		}
	}

	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
