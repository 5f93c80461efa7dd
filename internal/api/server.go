package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/youreka-ca/grant-directory/internal/auth"
	"github.com/youreka-ca/grant-directory/internal/csvio"
	"github.com/youreka-ca/grant-directory/internal/db"
	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/log"
	"github.com/youreka-ca/grant-directory/internal/models"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	Registry    *ingest.Registry
	Logger      log.Logger

	// Ingestion runs are single-slot: concurrent runs against the same
	// storage can both pass the duplicate check, so a second trigger while
	// one is running is rejected.
	scrapeMu sync.Mutex
}

func NewServer(pool *pgxpool.Pool, reg *ingest.Registry, logger log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	s := &Server{
		DB:          pool,
		Store:       db.NewStore(pool),
		AuthService: auth.NewService(pool),
		Echo:        e,
		Registry:    reg,
		Logger:      logger,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/grants", s.handleListGrants)
	api.GET("/grants/export", s.handleExportGrants)
	api.GET("/grants/:id", s.handleGetGrant)
	api.GET("/regions", s.handleListRegions)
	api.GET("/organizations", s.handleListOrganizations)

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Status tracking requires a signed-in user.
	tracked := api.Group("")
	tracked.Use(auth.Middleware)
	tracked.POST("/grants/:id/status", s.handleUpsertGrantStatus)
	tracked.GET("/grants/:id/status/:region_id", s.handleGetGrantStatus)

	admin := api.Group("")
	admin.Use(auth.AdminSecretMiddleware)
	admin.POST("/scrape", s.handleScrapeAll)
	admin.POST("/scrape/:source", s.handleScrapeSource)
	admin.GET("/runs", s.handleListRuns)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListGrants(c echo.Context) error {
	filters := db.GrantFilters{
		Province:       c.QueryParam("province"),
		Category:       c.QueryParam("category"),
		Language:       c.QueryParam("language"),
		TeamScope:      c.QueryParam("team_scope"),
		IndividualType: c.QueryParam("individual_type"),
		NGOOnly:        c.QueryParam("ngo_only") == "true",
		OngoingOnly:    c.QueryParam("ongoing") == "true",
		Limit:          50,
	}

	if v := c.QueryParam("region_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid region_id"})
		}
		filters.RegionID = &id
	}
	if v, err := strconv.ParseFloat(c.QueryParam("min_amount"), 64); err == nil && v > 0 {
		filters.MinAmount = &v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("max_amount"), 64); err == nil && v > 0 {
		filters.MaxAmount = &v
	}
	if v := c.QueryParam("deadline_before"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid deadline_before, expected YYYY-MM-DD"})
		}
		filters.DeadlineBefore = &t
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		filters.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		filters.Offset = o
	}

	grants, err := s.Store.ListGrants(c.Request().Context(), filters)
	if err != nil {
		log.Error(s.Logger, "list grants failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if grants == nil {
		grants = []models.Grant{}
	}
	return c.JSON(http.StatusOK, map[string]any{"grants": grants, "count": len(grants)})
}

func (s *Server) handleGetGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant id"})
	}

	grant, err := s.Store.GetGrantByID(c.Request().Context(), id)
	if err != nil {
		log.Error(s.Logger, "get grant failed", err, "id", id)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if grant == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	resp := map[string]any{"grant": grant}
	if days := grant.DaysUntilDeadline(time.Now()); days != nil {
		resp["days_until_deadline"] = *days
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExportGrants(c echo.Context) error {
	grants, err := s.Store.ListGrants(c.Request().Context(), db.GrantFilters{})
	if err != nil {
		log.Error(s.Logger, "export grants failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="grants.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return csvio.Export(c.Response(), grants)
}

func (s *Server) handleListRegions(c echo.Context) error {
	regions, err := s.Store.ListRegions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, regions)
}

func (s *Server) handleListOrganizations(c echo.Context) error {
	orgs, err := s.Store.ListOrganizations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, orgs)
}

type statusRequest struct {
	RegionID        uuid.UUID `json:"region_id"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	BudgetAllocated *float64  `json:"budget_allocated"`
	AmountApplied   *float64  `json:"amount_applied"`
	AmountAwarded   *float64  `json:"amount_awarded"`
}

func (s *Server) handleUpsertGrantStatus(c echo.Context) error {
	grantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant id"})
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.RegionID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "region_id is required"})
	}
	if !models.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}

	grant, err := s.Store.GetGrantByID(c.Request().Context(), grantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if grant == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	st := &models.GrantStatus{
		GrantID:         grantID,
		RegionID:        req.RegionID,
		Status:          req.Status,
		Notes:           req.Notes,
		BudgetAllocated: req.BudgetAllocated,
		AmountApplied:   req.AmountApplied,
		AmountAwarded:   req.AmountAwarded,
	}
	if err := s.Store.UpsertGrantStatus(c.Request().Context(), st); err != nil {
		log.Error(s.Logger, "upsert grant status failed", err, "grant_id", grantID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleGetGrantStatus(c echo.Context) error {
	grantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant id"})
	}
	regionID, err := uuid.Parse(c.Param("region_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid region id"})
	}

	st, err := s.Store.GetGrantStatus(c.Request().Context(), grantID, regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if st == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleScrapeSource(c echo.Context) error {
	sourceID := c.Param("source")
	cfg, ok := s.Registry.Source(sourceID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown source"})
	}

	if !s.scrapeMu.TryLock() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "A scrape is already running"})
	}
	defer s.scrapeMu.Unlock()

	adapter, fetcher, err := ingest.BuildAdapter(cfg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	pipeline := ingest.NewPipeline(s.Store, s.Store, s.Logger)
	stats, err := pipeline.RunSource(c.Request().Context(), adapter, fetcher)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]any{"error": err.Error(), "stats": stats})
	}
	return c.JSON(http.StatusOK, map[string]any{"source": sourceID, "stats": stats})
}

func (s *Server) handleScrapeAll(c echo.Context) error {
	if !s.scrapeMu.TryLock() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "A scrape is already running"})
	}
	defer s.scrapeMu.Unlock()

	pipeline := ingest.NewPipeline(s.Store, s.Store, s.Logger)
	results, err := pipeline.RunAll(c.Request().Context(), s.Registry)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]any{"error": err.Error(), "results": results})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleListRuns(c echo.Context) error {
	limit := 10
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	runs, err := s.Store.ListRecentRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if runs == nil {
		runs = []models.ScrapeRun{}
	}
	return c.JSON(http.StatusOK, runs)
}
