package catalog

import (
	"context"
	"fmt"
	"reflect"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/logging"
	"github.com/zulandar/proptalk/internal/property"
	"go.uber.org/zap"
)

// cronParser accepts standard 5-field cron expressions (minute, hour, dom,
// month, dow) and descriptors such as "@hourly" or "@every 30m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a usable refresh schedule.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("catalog: schedule %q: %w", expr, err)
	}
	return nil
}

// Source lists the backend's properties.
type Source interface {
	ListProperties(ctx context.Context) (*backend.PropertyList, error)
}

// Syncer copies the backend catalog into a Store.
type Syncer struct {
	source Source
	store  *Store
	log    *zap.Logger
}

// SyncerOpts holds parameters for creating a Syncer.
type SyncerOpts struct {
	Source Source
	Store  *Store
	Logger *zap.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(opts SyncerOpts) (*Syncer, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("catalog: source is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("catalog: store is required")
	}
	return &Syncer{source: opts.Source, store: opts.Store, log: logging.OrNop(opts.Logger)}, nil
}

// Result describes one sync.
type Result struct {
	Properties []property.Summary
	Changed    bool
}

// Sync loads the backend catalog and writes it to the store when it
// differs from what is cached.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	list, err := s.source.ListProperties(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("catalog: sync: %w", err)
	}
	fresh := list.Catalog().All()

	cached, err := s.store.All()
	if err != nil {
		return Result{}, fmt.Errorf("catalog: sync: %w", err)
	}
	if equal(cached, fresh) {
		s.log.Debug("catalog unchanged", zap.Int("properties", len(fresh)))
		return Result{Properties: fresh}, nil
	}
	if err := s.store.Replace(fresh); err != nil {
		return Result{}, fmt.Errorf("catalog: sync: %w", err)
	}
	s.log.Info("catalog updated", zap.Int("properties", len(fresh)), zap.Int("previous", len(cached)))
	return Result{Properties: fresh, Changed: true}, nil
}

// Run syncs on the cron schedule expr until ctx is cancelled. onChange,
// when set, receives the new catalog after every sync that changed it.
// Failed syncs are logged and retried at the next tick.
func (s *Syncer) Run(ctx context.Context, expr string, onChange func([]property.Summary)) error {
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(expr, func() {
		res, err := s.Sync(ctx)
		if err != nil {
			s.log.Warn("scheduled catalog sync failed", zap.Error(err))
			return
		}
		if res.Changed && onChange != nil {
			onChange(res.Properties)
		}
	})
	if err != nil {
		return fmt.Errorf("catalog: schedule %q: %w", expr, err)
	}

	s.log.Info("catalog refresh scheduled", zap.String("cron", expr))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func equal(a, b []property.Summary) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
