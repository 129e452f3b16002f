package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/twinkle/lib/snapshot"
	"github.com/ValentinKolb/twinkle/lib/store"
	"github.com/ValentinKolb/twinkle/lib/store/lstore"
	"github.com/ValentinKolb/twinkle/rpc/codec"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
	"net"
	"net/http"
	"time"
)

// RPCServer binds a datagram transport to a store and keeps the store persisted.
type RPCServer struct {
	config      common.ServerConfig
	transport   transport.IRPCServerTransport
	adapter     IRPCServerAdapter
	store       store.IStore
	snapshotter *snapshot.Snapshotter
	addr        net.Addr

	sink *common.LogSink
	log  logger.ILogger
	warn *common.RateLimitedLogger

	metrics      *metrics.Set
	parseErrors  *metrics.Counter
	execErrors   *metrics.Counter
	requests     map[common.Command]*metrics.Counter
	execDuration *metrics.Histogram
}

// NewRPCServer creates a new RPC server
// It takes a config, transport, the log sink and the metrics set the transport registers in.
//
// Usage:
//
//	set := metrics.NewSet()
//	s := server.NewRPCServer(
//		config,
//		udp.NewUDPServerTransport(sink.Logger("transport"), set),
//		sink,
//		set,
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	sink *common.LogSink,
	set *metrics.Set,
) *RPCServer {
	log := sink.Logger("server")

	requests := make(map[common.Command]*metrics.Counter)
	for _, cmd := range []common.Command{common.CmdPing, common.CmdGet, common.CmdSet, common.CmdUnset} {
		requests[cmd] = set.GetOrCreateCounter(fmt.Sprintf(`twinkle_requests_total{cmd=%q}`, cmd))
	}

	return &RPCServer{
		config:       config,
		transport:    transport,
		adapter:      NewIStoreServerAdapter(),
		sink:         sink,
		log:          log,
		warn:         common.NewRateLimitedLogger(log, time.Second),
		metrics:      set,
		parseErrors:  set.GetOrCreateCounter(`twinkle_packets_total{stage="parse_error"}`),
		execErrors:   set.GetOrCreateCounter(`twinkle_packets_total{stage="exec_error"}`),
		requests:     requests,
		execDuration: set.GetOrCreateHistogram("twinkle_request_duration_seconds"),
	}
}

// Init restores the store from an existing snapshot, registers the handler and binds the socket.
// An unreadable snapshot or a bind failure is returned as error, the server must not start then.
func (s *RPCServer) Init() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s.log.Infof("starting twinkle server")
	s.log.Infof("%s", s.config.String())

	// Restore the store
	entries := make(map[string][]byte)
	restored := false
	if s.config.SnapshotPath != "" {
		var err error
		entries, restored, err = snapshot.Restore(s.config.SnapshotPath, s.config.SnapshotCompress)
		if err != nil {
			return fmt.Errorf("failed to restore snapshot %s: %w", s.config.SnapshotPath, err)
		}
		if restored {
			s.log.Infof("restored %d entries from %s", len(entries), s.config.SnapshotPath)
		}
	}

	// the store takes ownership of the restored map
	s.store = lstore.NewLocalStoreFromMap(entries)

	if s.config.SnapshotEnabled() {
		s.snapshotter = snapshot.NewSnapshotter(s.store, snapshot.Config{
			Path:     s.config.SnapshotPath,
			Interval: s.config.SnapshotInterval(),
			Compress: s.config.SnapshotCompress,
		}, s.sink.Logger("snapshot"), s.metrics)

		// nothing mutates the store before the transport runs
		if restored {
			s.snapshotter.MarkRestored(entries)
		}
	}

	s.metrics.GetOrCreateGauge("twinkle_store_entries", func() float64 {
		return float64(s.store.Len())
	})

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)

	addr, err := s.transport.Bind(s.config)
	if err != nil {
		return err
	}
	s.addr = addr
	return nil
}

// Run serves until ctx is cancelled. The final snapshot is written after the
// transport stopped, so it contains every request that was executed.
func (s *RPCServer) Run(ctx context.Context) error {
	if s.addr == nil {
		return errors.New("server is not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)

	snapCtx, snapCancel := context.WithCancel(context.Background())
	defer snapCancel()

	if s.snapshotter != nil {
		g.Go(func() error {
			return s.snapshotter.Run(snapCtx)
		})
	}

	g.Go(func() error {
		defer snapCancel()
		return s.transport.Serve(gctx)
	})

	if s.config.MetricsEndpoint != "" {
		g.Go(func() error {
			return s.serveMetrics(gctx)
		})
	}

	err := g.Wait()
	s.log.Infof("server stopped")
	return err
}

// Serve starts the RPC server
// This function will also initialize the server and block until ctx is cancelled
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}
	return s.Run(ctx)
}

// Addr returns the address the transport is bound to, nil before Init
func (s *RPCServer) Addr() net.Addr {
	return s.addr
}

// Store returns the store served by this server, nil before Init
func (s *RPCServer) Store() store.IStore {
	return s.store
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// handle decodes, executes and encodes one datagram.
// Failures are logged and answered with nil, so no reply is sent.
func (s *RPCServer) handle(pkt *common.RawPacket) []byte {
	inst, err := codec.Decode(pkt)
	if err != nil {
		s.parseErrors.Inc()
		s.warn.Warningf("dropping datagram from %s: %v", pkt.Source, err)
		return nil
	}

	start := time.Now()
	resp, err := s.adapter.Handle(&inst.Req, s.store)
	if err != nil {
		s.execErrors.Inc()
		s.log.Errorf("failed to execute %s request %s from %s: %v", inst.Req.Cmd, inst.Token, inst.Source, err)
		return nil
	}
	s.execDuration.UpdateDuration(start)
	if c, ok := s.requests[inst.Req.Cmd]; ok {
		c.Inc()
	}

	return codec.EncodeResponse(resp, inst.Token)
}

// --------------------------------------------------------------------------
// Metrics Endpoint
// --------------------------------------------------------------------------

// serveMetrics exposes the metrics set in Prometheus text format on /metrics
func (s *RPCServer) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	srv := &http.Server{
		Addr:              s.config.MetricsEndpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infof("serving metrics on http://%s/metrics", s.config.MetricsEndpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}
