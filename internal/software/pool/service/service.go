package service

import (
	"time"

	"ride-pool/internal/general/logger"
	"ride-pool/internal/ports"
)

// poolService holds all dependencies required by the Ride Pool service.
type poolService struct {
	logger    *logger.Logger
	rides     ports.RideStore
	messages  ports.MessageLog
	directory ports.Directory
	pub       ports.Publisher
	now       func() time.Time
}

// NewPoolService constructs the service with required dependencies.
func NewPoolService(
	logger *logger.Logger,
	rides ports.RideStore,
	messages ports.MessageLog,
	directory ports.Directory,
	pub ports.Publisher,
) ports.RideService {
	return &poolService{
		logger:    logger,
		rides:     rides,
		messages:  messages,
		directory: directory,
		pub:       pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}
