package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/server/handlers"
	"github.com/mamadbah2/meditrack/internal/server/middleware"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Animals       *handlers.AnimalHandler
	Requests      *handlers.RequestHandler
	Prescriptions *handlers.PrescriptionHandler
	Billing       *handlers.BillingHandler
	Reporting     *handlers.ReportingHandler
	AMU           *handlers.AMUHandler
	Health        *handlers.HealthHandler
}

// Options carries the cross-cutting settings of the engine.
type Options struct {
	Tokens      middleware.TokenParser
	CORSOrigins []string
	// Uploads serves stored photos under /uploads when set.
	Uploads        http.FileSystem
	MaxUploadBytes int64
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = opts.MaxUploadBytes
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.GET("/healthz", h.Health.Health)
	if opts.Uploads != nil {
		r.StaticFS("/uploads", opts.Uploads)
	}

	api := r.Group("/api")
	authn := middleware.Authenticate(opts.Tokens)
	role := middleware.RequireRole

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	animals := api.Group("/animals", authn)
	animals.POST("/add", role(models.RoleFarmer), h.Animals.Add)
	animals.GET("/my-animals/:farmerId", h.Animals.ListForOwner)

	requests := api.Group("/requests", authn)
	requests.POST("/create", role(models.RoleFarmer), h.Requests.Create)
	requests.GET("/pending", role(models.RoleVet), h.Requests.Pending)
	requests.GET("/my-accepted/:vetId", role(models.RoleVet, models.RoleAdmin), h.Requests.AcceptedByVet)
	requests.GET("/my-requests/:farmerId", h.Requests.ForFarmer)
	requests.POST("/accept", role(models.RoleVet), h.Requests.Accept)
	requests.POST("/decline", role(models.RoleVet), h.Requests.Decline)
	requests.DELETE("/:id", role(models.RoleFarmer), h.Requests.Delete)

	prescription := api.Group("/prescription", authn, role(models.RoleVet))
	prescription.POST("/create", h.Prescriptions.Create)
	prescription.POST("/add", h.Prescriptions.Create)
	prescription.GET("/vet/recent", h.Prescriptions.RecentForVet)

	pharmacist := api.Group("/pharmacist", authn, role(models.RolePharmacist))
	pharmacist.GET("/new-prescriptions", h.Prescriptions.NewForPharmacy)
	pharmacist.POST("/create-bill", h.Billing.Create)
	pharmacist.GET("/bills/recent", h.Billing.Recent)

	manager := api.Group("/manager", authn, role(models.RoleManager, models.RoleAdmin, models.RoleVet))
	manager.GET("/check-animal/:tagId", h.Animals.CheckByTag)

	registrar := api.Group("/registrar", authn, role(models.RoleRegistrar, models.RoleAdmin))
	registrar.GET("/all-farmers", h.Animals.ListFarmers)
	registrar.GET("/farmer-animals/:farmerId", h.Animals.FarmerAnimals)
	registrar.POST("/add-animal", h.Animals.Provision)
	registrar.DELETE("/remove-animal/:animalId", h.Animals.Remove)

	amuGroup := api.Group("/amu", authn, role(models.RoleVet, models.RoleAdmin))
	amuGroup.POST("/add", h.AMU.Add)

	admin := api.Group("/admin")
	admin.GET("/public-amu-report", h.Reporting.PrescriptionsByCity)
	adminOnly := admin.Group("", authn, role(models.RoleAdmin))
	adminOnly.GET("/stats", h.Reporting.Stats)
	adminOnly.GET("/amu-by-city", h.Reporting.PrescriptionsByCity)
	adminOnly.GET("/medicine-usage", h.Reporting.MedicineUsage)
	adminOnly.GET("/professionals-by-city/:city", h.Reporting.ProfessionalsByCity)
	adminOnly.GET("/amu-export", h.Reporting.Export)

	ml := api.Group("/ml")
	ml.GET("/list_areas", h.Reporting.ListAreas)
	ml.GET("/amu_by_city", h.Reporting.AmuByCity)
	ml.POST("/area_amu_report", h.Reporting.AreaReport)
	ml.GET("/area_snapshots", h.Reporting.Snapshots)

	logger.Info("router initialized")
	return r
}
