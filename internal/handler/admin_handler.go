package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Harborview-Hotels/service-booking/internal/application"
	"github.com/Harborview-Hotels/service-booking/internal/platform/auth"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
	"github.com/Harborview-Hotels/service-booking/internal/platform/middleware"
	"github.com/Harborview-Hotels/service-booking/internal/platform/response"
)

// AdminBookingHandler exposes admin-only booking operations.
type AdminBookingHandler struct {
	service *application.BookingService
	clock   clock.Clock
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService, clk clock.Clock) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, clock: clk}
}

// RegisterRoutes registers admin routes on the given router group.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.Auth(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/bookings/stats", h.GetStats)
		admin.POST("/reconcile", h.Reconcile)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// GetStats handles GET /api/v1/admin/bookings/stats.
func (h *AdminBookingHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Reconcile handles POST /api/v1/admin/reconcile: an on-demand full sweep,
// same pass the scheduler runs on its own cadence.
func (h *AdminBookingHandler) Reconcile(c *gin.Context) {
	report := h.service.RunReconciliationSweep(c.Request.Context(), h.clock.Now())
	response.Success(c, report)
}
