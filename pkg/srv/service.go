package srv

import (
	"context"

	"github.com/sandevgo/recall/pkg/log"
)

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices launches each service in its own goroutine. A start
// failure is logged and reported through onErr so the caller decides
// whether to keep running.
func StartServices(ctx context.Context, services []Service, onErr func(error)) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil {
				logger.Error().Err(err).Msgf("%T failed to start", service)
				if onErr != nil {
					onErr(err)
				}
			}
		}(service)
	}
}

// ShutdownServices blocks until ctx is done, then shuts the services
// down in reverse start order.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(ctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
