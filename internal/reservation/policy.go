package reservation

import (
	"time"

	"hotel-reservation-backend/config"
)

// Policy holds the booking rules the validator and service enforce.
type Policy struct {
	MinStayDays      int
	MaxStayDays      int
	AnticipationDays int
	Patience         time.Duration
	Location         *time.Location
}

// PolicyFromConfig builds a Policy from loaded configuration.
func PolicyFromConfig(cfg config.BookingConfig) Policy {
	return Policy{
		MinStayDays:      cfg.MinStayDays,
		MaxStayDays:      cfg.MaxStayDays,
		AnticipationDays: cfg.AnticipationDays,
		Patience:         cfg.Patience,
		Location:         cfg.Location,
	}
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MinStayDays:      1,
		MaxStayDays:      30,
		AnticipationDays: 84,
		Patience:         30 * time.Minute,
		Location:         time.UTC,
	}
}
