package handler

import (
	"time"

	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Settings     *SettingsHandler
	Jobs         *JobsHandler
	Export       *ExportHandler
	Events       *EventsHandler
	Health       *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, bus *eventbus.Bus, heartbeat time.Duration, pinger Pinger) *Handler {
	return &Handler{
		Availability: NewAvailabilityHandler(svc.Availability, svc.Permission),
		Booking:      NewBookingHandler(svc.Booking),
		Settings:     NewSettingsHandler(svc.Settings, svc.Permission),
		Jobs:         NewJobsHandler(svc.Generator, svc.Sweeper, svc.Permission),
		Export:       NewExportHandler(svc.Export, svc.Permission),
		Events:       NewEventsHandler(bus, svc.Permission, heartbeat),
		Health:       NewHealthHandler(pinger, bus),
	}
}
