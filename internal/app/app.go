package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/collectionmodel"
	"github.com/nerrad567/ringclient-core/internal/contact"
	"github.com/nerrad567/ringclient-core/internal/daemon"
	"github.com/nerrad567/ringclient-core/internal/eventloop"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/config"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/database"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/logging"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ringclient-core/internal/model"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// ErrNotRunning is returned by Call before Start or after Close.
var ErrNotRunning = errors.New("app: not running")

// App is the application registry.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	Loop        *eventloop.Loop
	Arena       *collection.Arena
	People      *model.Master[*contact.Person]
	Contacts    *collection.Manager[*contact.Person]
	Collections *collectionmodel.Model
	Sizes       *collectionmodel.SizeExtension
	Devices     *video.DeviceModel
	Video       *video.Registry

	// Transitional holds contacts not yet saved anywhere.
	Transitional *collection.Collection[*contact.Person]

	// Infrastructure; nil when the matching section is disabled.
	DB     *database.DB
	MQTT   *mqtt.Client
	Daemon *daemon.Client
	Influx *influxdb.Client

	// Supervisor owns the daemon process when daemon.binary is set.
	Supervisor *daemon.Supervisor

	worker *video.Worker

	sizesPending atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	closers []func() error
}

// New builds the application from cfg and connects enabled infrastructure.
// Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		Loop:   eventloop.New(),
		Arena:  collection.NewArena(),
	}

	steps := []func() error{
		func() error { return a.openDatabase(ctx) },
		a.buildContacts,
		a.buildVideo,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = a.closeAll()
			return nil, err
		}
	}
	a.buildCollectionModel()
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *logging.Logger { return a.logger }

func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

func (a *App) openDatabase(ctx context.Context) error {
	if a.cfg.Database.Path == "" {
		return nil
	}
	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.DB = db
	a.onClose(func() error {
		a.logger.Info("closing database")
		return db.Close()
	})

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	a.logger.Info("database ready", "path", a.cfg.Database.Path)
	return nil
}

func (a *App) buildContacts() error {
	log := a.logger.Component("contacts")

	a.People = model.NewMaster[*contact.Person]("person")
	a.People.SetLogger(log)
	a.Contacts = collection.NewManager[*contact.Person]("person", a.Arena, a.People, a.Loop)
	a.Contacts.SetLogger(log)

	var repo contact.Repository
	if a.DB != nil {
		repo = contact.NewSQLiteRepository(a.DB.DB)
	}
	if err := contact.RegisterKinds(a.Contacts, repo); err != nil {
		return fmt.Errorf("registering contact kinds: %w", err)
	}

	// Subdirectories of a vCard directory register on a later tick; load
	// them as they arrive.
	a.Contacts.Added().Connect(func(c collection.Interface) {
		if c.Parent() == collection.NoHandle || !c.Features().Has(collection.FeatureLoad) {
			return
		}
		if err := c.Load(context.Background()); err != nil {
			log.Warn("loading child collection failed", "collection", c.Name(), "error", err)
		}
	})

	transitional, err := a.Contacts.AddCollection(contact.KindTransitional, nil, collection.NoHandle)
	if err != nil {
		return fmt.Errorf("creating transitional collection: %w", err)
	}
	a.Transitional = transitional

	if dir := a.cfg.Contacts.VCardDir; dir != "" {
		if _, err := a.Contacts.AddCollection(contact.KindFallback, contact.FallbackParams{Dir: dir}, collection.NoHandle); err != nil {
			return fmt.Errorf("creating vCard directory collection: %w", err)
		}
	}

	if ab := a.cfg.Contacts.AddressBook; ab.Enabled {
		if _, err := a.Contacts.AddCollection(contact.KindAddressBook, contact.AddressBookParams{Name: ab.Name}, collection.NoHandle); err != nil {
			return fmt.Errorf("creating address book: %w", err)
		}
	}

	a.onClose(func() error {
		a.Contacts.Close()
		return nil
	})
	return nil
}

func (a *App) buildVideo() error {
	log := a.logger.Component("video")

	var vm video.VideoManager = daemon.Offline{}
	if a.cfg.Daemon.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(a.logger.Component("mqtt"))
		client.SetOnConnect(func() { a.logger.Info("MQTT connected") })
		client.SetOnDisconnect(func(err error) { a.logger.Warn("MQTT disconnected", "error", err) })
		a.MQTT = client
		a.onClose(func() error {
			a.logger.Info("disconnecting from MQTT")
			return client.Close()
		})

		a.Daemon = daemon.New(client, a.Loop, daemon.Options{
			Topics:   mqtt.Topics{Daemon: a.cfg.Daemon.TopicPrefix},
			QoS:      byte(a.cfg.MQTT.QoS),
			ClientID: a.cfg.Client.ID,
			Timeout:  a.cfg.GetDaemonTimeout(),
			Logger:   a.logger.Component("daemon"),
		})
		vm = a.Daemon

		if a.cfg.Daemon.Binary != "" {
			a.Supervisor = daemon.NewSupervisor(daemon.SupervisorConfig{
				Binary:           a.cfg.Daemon.Binary,
				Args:             a.cfg.Daemon.Args,
				RestartOnFailure: a.cfg.Daemon.RestartOnFailure,
				MaxRestarts:      a.cfg.Daemon.MaxRestarts,
			}, a.logger.Component("supervisor"))
		}
	} else {
		log.Info("daemon bridge disabled, video control unavailable")
	}

	opts := video.Options{
		BufferSize: a.cfg.Video.BufferSize,
		Logger:     log,
	}
	if a.cfg.Video.Worker {
		a.worker = video.NewWorker()
		opts.Worker = a.worker
		a.onClose(func() error {
			a.worker.Stop()
			return nil
		})
	}
	if a.cfg.InfluxDB.Enabled {
		influx, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influx.SetOnError(func(err error) {
			a.logger.Error("InfluxDB write error", "error", err)
		})
		a.Influx = influx
		a.onClose(func() error {
			a.logger.Info("closing InfluxDB connection")
			return influx.Close()
		})
		opts.Recorder = influxdb.NewSessionRecorder(influx, a.cfg.Client.ID)
	}

	a.Devices = video.NewDeviceModel(vm)
	a.Devices.SetLogger(log)
	a.Video = video.NewRegistry(vm, a.Devices, opts)
	return nil
}

func (a *App) buildCollectionModel() {
	a.Collections = collectionmodel.New()
	a.Collections.SetLogger(a.logger.Component("collections"))
	if a.DB != nil {
		a.Collections.SetStateStore(collectionmodel.NewSQLiteStateStore(a.DB.DB))
	}
	a.Sizes = &collectionmodel.SizeExtension{}
	a.Collections.AddExtension(a.Sizes)
	a.Collections.Watch(a.Contacts)

	refresh := func(model.RowEvent) { a.refreshSizes() }
	a.People.RowsInserted().Connect(refresh)
	a.People.RowsRemoved().Connect(refresh)

	a.onClose(func() error {
		a.Collections.Close()
		return nil
	})
}

// refreshSizes schedules one size update for every collection on the loop.
// Bursts of row changes coalesce into a single update.
func (a *App) refreshSizes() {
	if !a.sizesPending.CompareAndSwap(false, true) {
		return
	}
	a.Loop.Post(func() {
		a.sizesPending.Store(false)
		for _, c := range a.Contacts.Collections() {
			a.Sizes.Touch(c)
		}
	})
}

// Start runs the event loop, attaches the daemon bridge and, when
// configured, loads every contact collection.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app: already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	go a.Loop.Run(runCtx)

	if a.Supervisor != nil {
		if err := a.Supervisor.Start(runCtx); err != nil {
			return fmt.Errorf("launching daemon: %w", err)
		}
		a.onClose(a.Supervisor.Stop)
	}

	if a.Daemon != nil {
		if err := a.Daemon.Start(runCtx, a.Video); err != nil {
			return fmt.Errorf("starting daemon bridge: %w", err)
		}
		a.onClose(a.Daemon.Stop)
		a.Loop.Post(func() { a.Video.DeviceEvent(runCtx) })
	}

	if a.cfg.Contacts.LoadOnStart {
		err := a.Call(ctx, func() error {
			return a.Collections.Load(ctx)
		})
		if err != nil {
			a.logger.Warn("initial contact load incomplete", "error", err)
		}
		a.logger.Info("contacts loaded", "people", a.People.RowCount(), "collections", a.Contacts.Len())
	}
	return nil
}

// Call runs fn on the event loop and waits for it.
func (a *App) Call(ctx context.Context, fn func() error) error {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	return a.Loop.Call(ctx, fn)
}

// HealthCheck verifies every enabled connection.
func (a *App) HealthCheck(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.MQTT != nil {
		if err := a.MQTT.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if a.Influx != nil {
		if err := a.Influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if a.Supervisor != nil {
		if st := a.Supervisor.Stats(); st.Status == daemon.ProcessFailed {
			return fmt.Errorf("daemon process failed after %d exits: %s", st.Exits, st.LastError)
		}
	}
	return nil
}

// closeTimeout bounds waiting for the loop to stop.
const closeTimeout = 5 * time.Second

// Close stops the loop and releases every resource in reverse order of
// acquisition.
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	wasRunning := a.running
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasRunning {
		select {
		case <-a.Loop.Done():
		case <-time.After(closeTimeout):
			a.logger.Warn("event loop did not stop in time")
		}
	}
	return a.closeAll()
}

func (a *App) closeAll() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
