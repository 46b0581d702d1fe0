package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cuemby/yarelycore/pkg/cache"
	"github.com/cuemby/yarelycore/pkg/config"
	"github.com/cuemby/yarelycore/pkg/contextstore"
	"github.com/cuemby/yarelycore/pkg/display"
	"github.com/cuemby/yarelycore/pkg/events"
	"github.com/cuemby/yarelycore/pkg/filter"
	"github.com/cuemby/yarelycore/pkg/log"
	"github.com/cuemby/yarelycore/pkg/lottery"
	"github.com/cuemby/yarelycore/pkg/metrics"
	"github.com/cuemby/yarelycore/pkg/procmanager"
	"github.com/cuemby/yarelycore/pkg/scheduling"
	"github.com/cuemby/yarelycore/pkg/subscription"
	"github.com/cuemby/yarelycore/pkg/xmlwire"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the playout engine: cache, subscription, context, scheduling, and display managers",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		rendererStarter, _ := cmd.Flags().GetString("renderer-starter")

		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		}

		return runDevice(cfg, metricsAddr, rendererStarter)
	},
}

func init() {
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Prometheus/health HTTP server address")
	runCmd.Flags().String("renderer-starter", "", "Path to the renderer-starter binary (defaults to this executable)")
}

// runDevice wires every manager into one always-on process: it's the one
// place that knows the full dependency graph between the RPC bus's fixed
// ports, the persistent stores, and the Scheduling/Display Managers that
// drive each other through narrow interfaces rather than direct references.
func runDevice(cfg config.Config, metricsAddr, rendererStarter string) error {
	logger := log.Logger

	serveMetrics(metricsAddr)
	metrics.SetVersion(Version)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	go logEvents(broker.Subscribe(), logger)

	if rendererStarter == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable path: %w", err)
		}
		rendererStarter = self
	}

	if err := os.MkdirAll(cfg.CacheFileStorage.CacheLocation, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	contentCache, err := cache.New(cfg.CacheFileStorage.CacheLocation, cache.DefaultContentTypes())
	if err != nil {
		return fmt.Errorf("open content cache: %w", err)
	}
	defer contentCache.Close()
	metrics.RegisterComponent("cache", true, "ready")

	cacheMgr := cache.NewManager(contentCache, logger)
	cacheMgr.Start()
	defer cacheMgr.Stop()

	ctxStore, err := contextstore.NewStore(cfg.ContextStore.ContextStorePath)
	if err != nil {
		return fmt.Errorf("open context store: %w", err)
	}
	metrics.RegisterComponent("context_store", true, "ready")

	subStore, err := subscription.NewStore(cfg.SubscriptionManagement.PersistTo)
	if err != nil {
		return fmt.Errorf("open subscription store: %w", err)
	}
	metrics.RegisterComponent("subscription_store", true, "ready")

	pipeline := filter.NewDefaultPipeline(ctxStore, contentCache, logger)
	scheduler := lottery.NewScheduler(logger, cfg.Scheduling.DefaultContentDuration)

	displayAddr := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.RendererRequestPort)
	// Display's SchedulingTrigger/PageviewReporter and Scheduling's Display
	// collaborator reference each other's public surface only through the
	// interfaces both packages already define, so neither package imports
	// the other's concrete type. The Display Manager is built around
	// schedulingRef, whose embedded *scheduling.Manager is filled in below
	// once the one Scheduling Manager that gets started exists.
	schedulingRef := &struct{ *scheduling.Manager }{}
	displayMgr := display.NewManager(rendererStarter, displayAddr, nil, contentCache, schedulingRef, schedulingRef, logger)

	var powerController scheduling.PowerController
	if cfg.RPC.DisplayControllerReplyPort != 0 {
		powerController = newPowerClient(fmt.Sprintf("127.0.0.1:%d", cfg.RPC.DisplayControllerReplyPort), logger)
	}

	schedulingMgr := scheduling.NewManager(pipeline, scheduler, displayMgr, powerController, cacheMgr, ctxStore, nil, logger)
	schedulingRef.Manager = schedulingMgr

	if err := displayMgr.Start(displayAddr); err != nil {
		return fmt.Errorf("start display manager: %w", err)
	}
	defer displayMgr.Stop()
	metrics.RegisterComponent("display", true, "ready")

	schedulingMgr.Start()
	defer schedulingMgr.Stop()
	metrics.RegisterComponent("scheduling", true, "ready")

	contextParser := contextstore.NewParser(ctxStore, schedulingMgr, schedulingMgr, schedulingMgr, logger)
	subscriptionAddr := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.SubscriptionReplyPort)
	sensorAddr := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.SensorReplyPort)
	if err := contextParser.Start(subscriptionAddr, sensorAddr); err != nil {
		return fmt.Errorf("start context parser: %w", err)
	}
	defer contextParser.Stop()
	metrics.RegisterComponent("context_parser", true, "ready")

	registry := procmanager.NewRegistry()
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	registry.Register(procmanager.HandlerStub{Kind: "file", Binary: self, Args: []string{"handler", "file"}})
	registry.Register(procmanager.HandlerStub{Kind: "http", Binary: self, Args: []string{"handler", "http"}})

	handlerRequestAddr := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.SubscriptionRequestPort)
	procMgr := procmanager.New(registry, handlerRequestAddr, defaultHandlerSpawner, logger)
	go procMgr.RunSweepLoop()
	defer procMgr.StopAll()
	uriMgr := procmanager.NewURIManager(procMgr)

	forwardAddr := fmt.Sprintf("127.0.0.1:%d", cfg.RPC.SubscriptionReplyPort)
	forward := newSubscriptionForwarder(forwardAddr, logger)

	subscriptionMgr := subscription.NewManager(subStore, uriMgr, subscription.DefaultNestingPolicy(), cfg.SubscriptionManagement.SubscriptionRoot, forward, logger)
	subBus, err := xmlwire.Listen(handlerRequestAddr, deviceRequestHandler(procMgr, subscriptionMgr, broker), logger)
	if err != nil {
		return fmt.Errorf("start subscription manager: %w", err)
	}
	defer subBus.Stop()
	metrics.RegisterComponent("subscription_manager", true, "ready")

	logger.Info().Msg("yarelycore running")
	waitForSignal()
	logger.Info().Msg("shutting down")
	return nil
}

// deviceRequestHandler dispatches everything a Pull-handler subprocess
// sends to the Subscription Manager's own inbound port: registration and
// liveness pings go to the Process Manager tracking it, and every fetched
// payload goes to the Subscription Manager for nesting-aware reassembly.
// Every outcome is also published on broker, the one place more than one
// observer (today, just the log consumer) can watch handler/subscription
// lifecycle without the managers themselves depending on pkg/events.
func deviceRequestHandler(procMgr *procmanager.Manager, subMgr *subscription.Manager, broker *events.Broker) xmlwire.RequestHandler {
	return func(req xmlwire.Request) xmlwire.Reply {
		switch {
		case req.Register != nil:
			current, settings, err := procMgr.HandleRegister(req.Register.SpawnToken, req.Register.Kind)
			if err != nil {
				return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: err.Error()}}
			}
			broker.Publish(&events.Event{Type: events.EventHandlerRegistered, Message: req.Register.Kind})
			params := xmlwire.ParamsBody{Token: current}
			for k, v := range settings {
				params.Settings = append(params.Settings, xmlwire.KeyValue{Key: k, Value: v})
			}
			return xmlwire.Reply{Params: &params}

		case req.Ping != nil:
			if !procMgr.CheckToken(req.Token) {
				return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "unknown token"}}
			}
			procMgr.RecordCheckin(req.Token)
			return xmlwire.Reply{Pong: &xmlwire.PongBody{}}

		case req.SubscriptionUpdate != nil:
			if !procMgr.CheckToken(req.Token) {
				return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "unknown token"}}
			}
			procMgr.RecordCheckin(req.Token)
			if err := subMgr.HandleSubscriptionUpdate(req.SubscriptionUpdate.URI, req.SubscriptionUpdate.Body); err != nil {
				broker.Publish(&events.Event{Type: events.EventSubscriptionFailed, Message: err.Error(), Metadata: map[string]string{"uri": req.SubscriptionUpdate.URI}})
				return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: err.Error()}}
			}
			broker.Publish(&events.Event{Type: events.EventSubscriptionUpdated, Metadata: map[string]string{"uri": req.SubscriptionUpdate.URI}})
			return xmlwire.Reply{Ack: &xmlwire.AckBody{}}

		default:
			return xmlwire.Reply{Error: &xmlwire.ErrorBody{Message: "unsupported request for this endpoint"}}
		}
	}
}

// logEvents drains sub and logs every event until the broker closes it on
// shutdown, giving every handler/subscription lifecycle transition a
// structured log line without the managers that raise them depending on
// pkg/log directly.
func logEvents(sub events.Subscriber, logger zerolog.Logger) {
	for evt := range sub {
		logger.Info().
			Str("event", string(evt.Type)).
			Str("message", evt.Message).
			Fields(map[string]interface{}{"metadata": evt.Metadata}).
			Msg("runtime event")
	}
}

// newSubscriptionForwarder dials the Context & Constraints parser's
// subscription reply endpoint and wraps every forwarded tree in a fresh
// request, matching how a Pull-handler reports its own reads.
func newSubscriptionForwarder(addr string, logger zerolog.Logger) subscription.Forwarder {
	sock, err := xmlwire.Dial(addr, logger)
	if err != nil {
		logger.Error().Err(err).Str("addr", addr).Msg("failed to dial context parser for subscription forwarding")
		return func(string, string) {}
	}
	return func(rootURI, wrappedCDS string) {
		_, err := sock.Send(xmlwire.Request{SubscriptionUpdate: &xmlwire.SubscriptionUpdate{URI: rootURI, Body: wrappedCDS}})
		if err != nil {
			logger.Error().Err(err).Str("uri", rootURI).Msg("failed to forward reassembled cds to context parser")
		}
	}
}

// defaultHandlerSpawner runs a Handler subprocess with its standard error
// directed wherever the Process Manager tells it to, so a crashing
// Handler's panic or stack trace ends up alongside its own checkin log.
func defaultHandlerSpawner(binary string, args []string, stderr io.Writer) (*exec.Cmd, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn handler %s: %w", filepath.Base(binary), err)
	}
	return cmd, nil
}
