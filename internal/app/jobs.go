package app

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/unicafe/cafeteria/internal/domain"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const jobTimeout = 5 * time.Minute

// Job names accepted by RunJob.
const (
	JobCartReaper    = "cart-reaper"
	JobAbandonPurge  = "abandoned-purge"
	JobLowStockAlert = "low-stock-alert"
)

func (a *Application) jobs() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		JobCartReaper:    a.SchedCleanExpiredCarts,
		JobAbandonPurge:  a.SchedPurgeAbandonedCarts,
		JobLowStockAlert: a.SchedLowStockAlert,
	}
}

func (a *Application) schedules() map[string]string {
	return map[string]string{
		JobCartReaper:    a.appConfig.Cart.ReapSchedule,
		JobAbandonPurge:  a.appConfig.Cart.PurgeSchedule,
		JobLowStockAlert: a.appConfig.Inventory.LowStockSchedule,
	}
}

// JobInfo describes a background job and its next run, if scheduled.
type JobInfo struct {
	Name string     `json:"name"`
	Spec string     `json:"spec"`
	Next *time.Time `json:"next,omitempty"`
}

// Jobs lists the background jobs ordered by name.
func (a *Application) Jobs() []JobInfo {
	infos := make([]JobInfo, 0, len(a.jobs()))
	for name, spec := range a.schedules() {
		info := JobInfo{Name: name, Spec: spec}
		if id, ok := a.jobIDs[name]; ok && a.sched != nil {
			if next := a.sched.Entry(id).Next; !next.IsZero() {
				info.Next = &next
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (a *Application) initJob() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	a.jobIDs = make(map[string]cron.EntryID)

	for name, spec := range a.schedules() {
		if spec == "" {
			continue
		}
		name := name
		id, err := a.sched.AddFunc(spec, func() { a.dispatch(name) })
		if err != nil {
			return errors.Wrapf(err, "init job %s", name)
		}
		a.jobIDs[name] = id
		zap.L().Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	}
	return nil
}

// dispatch hands a job to the worker pool so a slow run never blocks the
// cron goroutine.
func (a *Application) dispatch(name string) {
	err := a.pool.Submit(func() {
		if err := a.RunJob(name); err != nil {
			zap.L().Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("job dispatch failed", zap.String("job", name), zap.Error(err))
	}
}

// RunJob runs one background job synchronously.
func (a *Application) RunJob(name string) (err error) {
	job, ok := a.jobs()[name]
	if !ok {
		return &domain.NotFoundError{Entity: "job", ID: name}
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job %s panic: %v", name, r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	return job(ctx)
}

// SchedCleanExpiredCarts abandons expired carts.
func (a *Application) SchedCleanExpiredCarts(ctx context.Context) error {
	n, err := a.resolver.CleanExpiredCarts(ctx, a.appConfig.Cart.StaleMinutes)
	if err != nil {
		return err
	}
	zap.L().Debug("cart reaper finished", zap.Int("abandoned", n))
	return nil
}

// SchedPurgeAbandonedCarts deletes long abandoned carts.
func (a *Application) SchedPurgeAbandonedCarts(ctx context.Context) error {
	days := a.appConfig.Cart.AbandonedDays
	if days <= 0 {
		days = 30
	}
	n, err := a.resolver.DeleteOldAbandonedCarts(ctx, days)
	if err != nil {
		return err
	}
	zap.L().Debug("abandoned cart purge finished", zap.Int("deleted", n))
	return nil
}

// SchedLowStockAlert publishes a low stock event per product under its threshold.
func (a *Application) SchedLowStockAlert(ctx context.Context) error {
	n, err := a.ledger.AlertLowStock(ctx, a.bus)
	if err != nil {
		return err
	}
	zap.L().Debug("low stock scan finished", zap.Int("products", n))
	return nil
}
