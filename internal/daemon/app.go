// Package daemon wires the daemon's building blocks (config, transport,
// device pools, telemetry, publish) into one running process. It is the
// Go analogue of the teacher's internal/app bootstrap: one New function
// that returns something main can Run and Shutdown.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cctalk/cctalk-host/internal/config"
	"github.com/cctalk/cctalk-host/internal/logging"
	"github.com/cctalk/cctalk-host/internal/publish"
	"github.com/cctalk/cctalk-host/internal/telemetry"
	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/pool"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
)

// hopperRegisterCount is the payout-status register width assumed for
// every configured hopper. Devices that report the extended register-3
// flag byte are not auto-detected; a future config field could override
// this per hopper if that turns out to matter in the field.
const hopperRegisterCount = 2

// App holds every long-lived component the daemon runs: the hot-
// reloadable config, the serial transport, the three device pools, and
// the optional telemetry/publish sidecars.
type App struct {
	watcher *config.Watcher
	log     *logrus.Logger

	transport *transport.Transport

	currency *pool.CurrencyAcceptorPool
	payout   *pool.PayoutPool
	sensors  *pool.PayoutSensorPool

	telemetry *telemetry.Server
	publisher *publish.Publisher

	stopCurrencyPoll device.StopFunc
	stopSensorPoll   device.StopFunc

	wg sync.WaitGroup
}

func checksumTypeFromString(s string) packet.ChecksumType {
	if s == "crc16" {
		return packet.ChecksumCRC16
	}
	return packet.ChecksumSimple
}

// New loads configuration from configPath, opens the bus, and builds
// every pool and sidecar it describes. The returned App is fully wired
// but not yet polling; call Run to start it.
func New(configPath string) (*App, error) {
	watcher, err := config.NewWatcher(configPath, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		return nil, fmt.Errorf("daemon: loading config: %w", err)
	}
	cfg := watcher.Current()

	log := logging.New(cfg.Log)
	watcher.OnChange(func(_, newCfg *config.Config) error {
		return logging.Reconfigure(log, newCfg.Log)
	})

	checksumType := checksumTypeFromString(cfg.Bus.ChecksumType)

	link, err := transport.OpenSerialLink(cfg.Bus.Device, cfg.Bus.BaudRate)
	if err != nil {
		return nil, fmt.Errorf("daemon: opening bus: %w", err)
	}

	tr := transport.New(link, cfg.Bus.ReadTimeout, cfg.Bus.MinimumDelay, transport.RetryConfig{
		MaxRetries:           cfg.Retry.MaxRetries,
		RetryDelay:           cfg.Retry.RetryDelay,
		RetryOnTimeout:       cfg.Retry.RetryOnTimeout,
		RetryOnChecksumError: cfg.Retry.RetryOnChecksumError,
		RetryOnNack:          cfg.Retry.RetryOnNack,
		RetryOnSocketError:   cfg.Retry.RetryOnSocketError,
	})
	tr.Logger = logrus.NewEntry(log)

	currencyBuilder := pool.NewCurrencyAcceptorPoolBuilder().WithPollingInterval(cfg.Poll.CurrencyInterval)
	for _, d := range cfg.Devices.CoinValidators {
		dev := packet.NewDevice(d.Address, packet.CategoryCoinAcceptor, checksumType)
		currencyBuilder.AddCoinValidator(device.NewCoinValidator(dev, tr))
	}
	for _, d := range cfg.Devices.BillValidators {
		dev := packet.NewDevice(d.Address, packet.CategoryBillValidator, checksumType)
		currencyBuilder.AddBillValidator(device.NewBillValidator(dev, tr))
	}

	payoutBuilder := pool.NewPayoutPoolBuilder().WithPollingInterval(cfg.Poll.PayoutInterval)
	sensorBuilder := pool.NewPayoutSensorPoolBuilder().WithPollingInterval(cfg.Poll.SensorInterval)
	for _, h := range cfg.Devices.Hoppers {
		dev := packet.NewDevice(h.Address, packet.CategoryPayout, checksumType)
		payoutBuilder.AddHopper(device.NewPayoutDevice(dev, tr, hopperRegisterCount), h.Value)
		sensorBuilder.AddHopper(device.NewPayoutDevice(dev, tr, hopperRegisterCount))
	}

	app := &App{
		watcher:   watcher,
		log:       log,
		transport: tr,
	}

	if len(cfg.Devices.CoinValidators)+len(cfg.Devices.BillValidators) > 0 {
		currency, err := currencyBuilder.BuildAndInitialize()
		if err != nil {
			tr.Close()
			return nil, fmt.Errorf("daemon: initializing currency pool: %w", err)
		}
		app.currency = currency
	}
	if len(cfg.Devices.Hoppers) > 0 {
		payoutPool := payoutBuilder.Build()
		if err := payoutPool.Initialize(); err != nil {
			tr.Close()
			return nil, fmt.Errorf("daemon: initializing payout pool: %w", err)
		}
		app.payout = payoutPool
		app.sensors = sensorBuilder.Build()
	}

	if cfg.Metrics.Enabled {
		app.telemetry = telemetry.NewServer(cfg.Metrics.Address)
	}
	if cfg.Publish.Enabled {
		app.publisher = publish.NewPublisher(cfg.Publish.Addr, cfg.Publish.Channel)
	}

	return app, nil
}

// Run starts every background poll loop and, if configured, the
// telemetry HTTP server, returning once ctx is cancelled. It does not
// stop or wait for those loops; Shutdown does.
func (a *App) Run(ctx context.Context) error {
	if a.currency != nil {
		if err := a.currency.Enable(); err != nil {
			a.log.WithError(err).Warn("daemon: enabling currency pool")
		}
		results, stop, err := a.currency.TryBackgroundPolling(16)
		if err != nil {
			return fmt.Errorf("daemon: starting currency polling: %w", err)
		}
		a.stopCurrencyPoll = stop
		a.wg.Add(1)
		go a.drainCurrencyPolls(results)
	}

	if a.sensors != nil {
		sensorEvents, stop, err := a.sensors.TryStartPolling()
		if err != nil {
			return fmt.Errorf("daemon: starting sensor polling: %w", err)
		}
		a.stopSensorPoll = stop
		a.wg.Add(1)
		go a.drainSensorEvents(sensorEvents)
	}

	if a.telemetry != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.telemetry.ListenAndServe(); err != nil {
				a.log.WithError(err).Error("daemon: telemetry server exited")
			}
		}()
	}

	<-ctx.Done()
	return nil
}

func (a *App) drainCurrencyPolls(results <-chan pool.CurrencyPollResult) {
	defer a.wg.Done()
	for result := range results {
		if result.HasErrors() {
			for _, pollErr := range result.Errors {
				a.log.WithFields(logrus.Fields{
					"source": pollErr.Source.String(),
					"error":  pollErr.Err,
				}).Warn("daemon: currency poll error")
			}
		}
		for _, credit := range result.Credits {
			if a.telemetry != nil {
				a.telemetry.Metrics.EventsByKind.WithLabelValues("currency_credit").Inc()
			}
			a.log.WithFields(logrus.Fields{
				"value":  credit.Value,
				"source": credit.Source.String(),
			}).Info("daemon: currency credit")
		}
	}
}

func (a *App) drainSensorEvents(events <-chan pool.SensorEvent) {
	defer a.wg.Done()
	for ev := range events {
		if a.telemetry != nil {
			a.telemetry.Metrics.EventsByKind.WithLabelValues("sensor_event").Inc()
		}
		a.log.WithFields(logrus.Fields{
			"kind":    ev.Kind,
			"address": ev.Address,
			"current": ev.Current,
		}).Info("daemon: hopper sensor event")
	}
}

// Shutdown stops every background loop, closes the bus, and waits for
// drain goroutines to finish. ctx bounds the telemetry HTTP server's
// shutdown; the other steps do not take it.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopCurrencyPoll != nil {
		a.stopCurrencyPoll()
	}
	if a.stopSensorPoll != nil {
		a.stopSensorPoll()
	}
	if a.telemetry != nil {
		_ = a.telemetry.Shutdown(ctx)
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	_ = a.transport.Close()
	a.watcher.Stop()
	a.wg.Wait()
	return nil
}
