package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fleet-admin/internal/http/middleware"
	"fleet-admin/internal/model"
	"fleet-admin/internal/service"
)

type Handler struct {
	stateService *service.StateService
	authService  *service.AuthService
	log          zerolog.Logger
	now          func() time.Time
}

func NewHandler(
	stateService *service.StateService,
	authService *service.AuthService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		stateService: stateService,
		authService:  authService,
		log:          log,
		now:          time.Now,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/login", h.login)

	protected := api.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/logout", h.logout)
		protected.GET("/session", h.session)
		protected.GET("/state", h.getState)
		protected.PUT("/state", h.putState)
	}

	// Read-only projections of the stored state
	{
		protected.GET("/dashboard", h.dashboard)
		protected.GET("/reports/invoices", h.invoiceReport)
		protected.GET("/reports/suppliers", h.supplierReport)
		protected.GET("/suppliers", h.listSuppliers)
		protected.GET("/suppliers/:name/vehicles", h.supplierVehicles)
		protected.GET("/suppliers/:name/trips", h.supplierTrips)
		protected.GET("/drivers/eligible", h.eligibleDrivers)
		protected.GET("/export", h.export)
	}
}

func (h *Handler) health(c *gin.Context) {
	authState := "disabled"
	if h.authService.Enabled() {
		authState = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "auth": authState})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			h.handleError(c, service.ErrPayloadTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse("Invalid JSON body"))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  gin.H{"username": result.Username},
	})
}

func (h *Handler) logout(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Unauthorized"))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) session(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Unauthorized"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"username": principal.Username}})
}

func (h *Handler) getState(c *gin.Context) {
	snapshot, err := h.stateService.GetState(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) putState(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			h.handleError(c, service.ErrPayloadTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request."))
		return
	}

	saved, err := h.stateService.SaveState(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid payload. Expected a JSON object."))
			return
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) dashboard(c *gin.Context) {
	var filter *model.DashboardFilter
	if mode := strings.TrimSpace(c.Query("mode")); mode != "" {
		f := model.DashboardFilter{
			Mode:  model.DashboardMode(mode),
			Start: c.Query("start"),
			End:   c.Query("end"),
		}
		if !f.Mode.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse("invalid dashboard mode"))
			return
		}
		filter = &f
	}

	metrics, err := h.stateService.Dashboard(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *Handler) invoiceReport(c *gin.Context) {
	snapshot, err := h.stateService.GetState(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.InvoiceReport(snapshot))
}

func (h *Handler) supplierReport(c *gin.Context) {
	snapshot, err := h.stateService.GetState(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.SupplierReport(snapshot))
}

func (h *Handler) listSuppliers(c *gin.Context) {
	resolver, err := h.stateService.Resolver(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": resolver.SupplierNames()})
}

func (h *Handler) supplierVehicles(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid supplier name"))
		return
	}

	resolver, err := h.stateService.Resolver(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": name, "vehicles": resolver.SupplierVehicles(name)})
}

func (h *Handler) supplierTrips(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid supplier name"))
		return
	}

	resolver, err := h.stateService.Resolver(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"supplier": name,
		"trips":    resolver.SupplierTrips(name, c.Query("vehicle")),
	})
}

func (h *Handler) eligibleDrivers(c *gin.Context) {
	resolver, err := h.stateService.Resolver(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": resolver.EligibleDrivers(c.Query("vehicle"))})
}

func (h *Handler) export(c *gin.Context) {
	snapshot, err := h.stateService.GetState(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+service.ExportFilename(h.now())+`"`)
	c.Status(http.StatusOK)
	if err := service.WriteWorkbook(c.Writer, snapshot); err != nil {
		h.log.Error().Err(err).Msg("failed to write workbook")
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse(publicMessage(err, service.ErrUnauthorized)))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(publicMessage(err, service.ErrNotFound)))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(publicMessage(err, service.ErrInvalidInput)))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(publicMessage(err, service.ErrConflict)))
	case errors.Is(err, service.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse("Payload too large"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("Internal Server Error"))
	}
}

// publicMessage strips the sentinel prefix from a wrapped error.
func publicMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
