package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/samvad-envelope/internal/config"
	"github.com/samvad-hq/samvad-envelope/internal/logger"
	"github.com/samvad-hq/samvad-envelope/internal/probe"
	"github.com/samvad-hq/samvad-envelope/internal/storage"
	"github.com/samvad-hq/samvad-envelope/pkg/envelope"
	"github.com/samvad-hq/samvad-envelope/pkg/events"
	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/metrics"
)

// Prober is the probe runtime. It owns the target loop, the unauthorized
// event pipeline and the journal store.
type Prober struct {
	cfg      *config.Config
	targets  *probe.Targets
	service  *probe.Service
	bus      *events.Bus
	fanout   *events.Fanout
	notifier *events.Notifier
	store    storage.Store
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewProber builds a prober runtime from config files. Metrics are registered on reg when non-nil.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	profiles, err := envelope.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	log.InfoObj("envelope profiles loaded", "profiles_meta", map[string]any{
		"count": len(profiles.Names()),
		"names": profiles.Names(),
	})

	targets, err := probe.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RecordTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"record_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	bus := events.NewBus()
	notifier := events.NewNotifier(bus, fanout,
		events.WithDeliveryTimeout(cfg.HTTPTimeout),
		events.WithNotifierLogger(log),
	)

	service, err := probe.NewService(
		httpclient.NewRestyClient(cfg.HTTPTimeout),
		profiles,
		log,
		probe.WithMetrics(metrics.New(reg)),
		probe.WithMapperOptions(envelope.WithNotifier(notifier)),
	)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init probe service: %w", err)
	}

	return &Prober{
		cfg:      cfg,
		targets:  targets,
		service:  service,
		bus:      bus,
		fanout:   fanout,
		notifier: notifier,
		store:    store,
		interval: cfg.ProbeInterval,
		log:      log,
		now:      time.Now,
	}, nil
}

// buildFanout builds the enabled sinks. A missing sinks file means no downstream sinks.
func buildFanout(ctx context.Context, cfg *config.Config, store storage.Store, log logger.Logger) (*events.Fanout, error) {
	if cfg.SinksFile == "" {
		log.WarnObj("no sinks file configured; unauthorized events stay in-process", "sinks_file", "")
		return events.NewFanout(nil), nil
	}

	sinkReg, err := events.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := sinkReg.Enabled()

	pubs, err := events.BuildAll(ctx, events.DefaultRegistry(store), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   s.ID,
			"type": s.Type,
		})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return events.NewFanout(pubs), nil
}

// Bus exposes the in-process unauthorized broadcast.
func (p *Prober) Bus() *events.Bus {
	if p == nil {
		return nil
	}
	return p.bus
}

// Run starts the probe loop until the context is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.service == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.close()

	targets := p.targets.All()
	if len(targets) == 0 {
		p.log.WarnObj("no targets configured; prober idle", "targets_file", p.cfg.TargetsFile)
		<-ctx.Done()
		return nil
	}

	tick := tickInterval(targets, p.interval)
	p.log.InfoObj("probe loop starting", "prober_state", map[string]any{
		"targets_count": len(targets),
		"sinks_count":   p.fanout.Size(),
		"tick":          tick.String(),
	})

	lastRun := make(map[string]time.Time, len(targets))
	p.runDue(ctx, targets, lastRun)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("probe loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.runDue(ctx, targets, lastRun)
		}
	}
}

// runDue checks every target whose own interval has elapsed since its last run.
func (p *Prober) runDue(ctx context.Context, targets []probe.Target, lastRun map[string]time.Time) {
	due := dueTargets(targets, lastRun, p.now(), p.interval)
	if len(due) == 0 {
		return
	}

	start := p.now()
	outcomes, err := p.service.RunOnce(ctx, due)
	if err != nil {
		p.log.ErrorObj("probe pass reported errors", "error", err.Error())
	}
	p.log.DebugObj("probe pass completed", "probe_pass", map[string]any{
		"targets_count": len(due),
		"outcomes":      len(outcomes),
		"elapsed_ms":    p.now().Sub(start).Milliseconds(),
	})
}

// dueTargets selects the targets whose interval has elapsed and stamps them with now.
func dueTargets(targets []probe.Target, lastRun map[string]time.Time, now time.Time, fallback time.Duration) []probe.Target {
	due := make([]probe.Target, 0, len(targets))
	for _, t := range targets {
		last, seen := lastRun[t.ID]
		if seen && now.Sub(last) < t.Interval(fallback) {
			continue
		}
		lastRun[t.ID] = now
		due = append(due, t)
	}
	return due
}

// tickInterval is the shortest cadence among the targets.
func tickInterval(targets []probe.Target, fallback time.Duration) time.Duration {
	tick := fallback
	for _, t := range targets {
		if d := t.Interval(fallback); d < tick {
			tick = d
		}
	}
	return tick
}

// close waits for in-flight deliveries then releases sinks and storage.
func (p *Prober) close() {
	p.notifier.Wait()
	if err := p.fanout.Close(); err != nil {
		p.log.ErrorObj("sinks close failed", "error", err.Error())
	}
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
