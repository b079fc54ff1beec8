package main

import (
	"access-platform/internal/access"
	"access-platform/internal/attendance"
	"access-platform/internal/auth"
	"access-platform/internal/hardware"
	"access-platform/internal/httpapi"
	"access-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(
	r *gin.Engine,
	authManager *auth.Manager,
	accessSvc *access.Service,
	reconciler *hardware.Reconciler,
	reporter *attendance.Reporter,
) {
	h := httpapi.Handlers{
		Access:     accessSvc,
		Hardware:   reconciler,
		Attendance: reporter,
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Station routes: kiosks, receptionist desks, the mobile app.
	stations := v1.Group("")
	stations.Use(auth.RequireStationToken(authManager))
	{
		credentials := stations.Group("/credentials")
		credentials.Use(rbac.RequireAnyRole(rbac.RoleKiosk, rbac.RoleReceptionist, rbac.RoleApp))
		{
			credentials.POST("/validate", h.ValidateCredential)

			// Face capture only happens at doors, so the kiosk token must be
			// bound to one.
			credentials.POST("/face", rbac.RequireAccessPoint(), h.ValidateFace)
		}

		// Manual events carry an authorizer; receptionists only.
		events := stations.Group("/events")
		events.Use(rbac.RequireAnyRole(rbac.RoleReceptionist))
		{
			events.POST("/manual", h.RecordManualEvent)
		}

		attendanceGroup := stations.Group("/attendance")
		attendanceGroup.Use(rbac.RequireAnyRole(rbac.RoleReceptionist, rbac.RoleAdmin))
		{
			attendanceGroup.GET("/report", h.AttendanceReport)
		}
	}

	// Panel routes: hardware pushes authenticated by panel tokens. No RBAC,
	// the token type itself is the boundary.
	panels := v1.Group("/hardware")
	panels.Use(auth.RequirePanelToken(authManager))
	{
		panels.POST("/events", h.IngestHardwareEvent)
	}
}
