package srv

import "context"

// cleanupService runs teardown functions on shutdown. It does nothing
// on start, which lets resource cleanup participate in the same
// lifecycle as real services.
type cleanupService struct {
	fns []func() error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range c.fns {
		if e := fn(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func NewCleanup(fns ...func() error) Service {
	return &cleanupService{fns: fns}
}
