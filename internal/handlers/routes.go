package handlers

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Bookings      *BookingHandler
	AdminBookings *AdminBookingHandler
	Tours         *TourHandler
	Departures    *DepartureHandler
	AdminAuth     *AdminAuthHandler
	Ops           *OpsHandler
}

// RegisterRoutes mounts the public and admin API. adminAuth guards every
// admin route except the session exchange.
func RegisterRoutes(router *gin.Engine, h Handlers, adminAuth gin.HandlerFunc) {
	router.GET("/health", h.Ops.Health)

	v1 := router.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", h.Bookings.CreateBooking)
			bookings.POST("/join", h.Bookings.JoinDeparture)
			bookings.GET("/check", h.Bookings.CheckBooking)
		}

		v1.GET("/tours", h.Tours.ListTours)
		v1.GET("/tours/:id", h.Tours.GetTour)
		v1.GET("/departures/public", h.Departures.ListPublicDepartures)

		v1.POST("/admin/session", h.AdminAuth.Login)

		admin := v1.Group("/admin")
		admin.Use(adminAuth)
		{
			admin.GET("/tours", h.Tours.AdminListTours)
			admin.POST("/tours", h.Tours.CreateTour)
			admin.PUT("/tours/:id", h.Tours.UpdateTour)
			admin.DELETE("/tours/:id", h.Tours.DeleteTour)

			admin.GET("/bookings", h.AdminBookings.ListBookings)
			admin.GET("/bookings/:id", h.AdminBookings.GetBooking)
			admin.POST("/bookings", h.AdminBookings.CreateBooking)
			admin.PUT("/bookings/:id/status", h.AdminBookings.UpdateStatus)
			admin.POST("/bookings/:id/reinstate", h.AdminBookings.Reinstate)
			admin.PUT("/bookings/:id/details", h.AdminBookings.UpdateDetails)
			admin.POST("/bookings/:id/transfer", h.AdminBookings.Transfer)
			admin.POST("/bookings/:id/transfer-to-tour", h.AdminBookings.TransferToTour)
			admin.POST("/bookings/:id/convert-type", h.AdminBookings.ConvertType)

			admin.GET("/departures", h.Departures.ListDepartures)
			admin.GET("/departures/:id", h.Departures.GetDeparture)
			admin.POST("/departures", h.Departures.CreateDeparture)
			admin.PUT("/departures/:id", h.Departures.UpdateDeparture)
			admin.PUT("/departures/:id/date", h.Departures.ChangeDate)
			admin.PUT("/departures/:id/tour", h.Departures.ChangeTour)
			admin.POST("/departures/:id/split", h.Departures.Split)
			admin.POST("/departures/:id/reprice", h.Departures.Reprice)
			admin.DELETE("/departures/:id", h.Departures.DeleteDeparture)

			admin.GET("/cron/status", h.Ops.CronStatus)
			admin.POST("/cron/evict-rate-limits", h.Ops.EvictRateLimits)
			admin.POST("/cron/complete-departures", h.Ops.CompleteDepartures)
		}
	}
}
