// Package accept runs the TCP/TLS accept loop: one goroutine per
// listener, handing every accepted socket off to a fresh connection
// worker. This is the external collaborator spec.md §1 calls out as
// out of scope for the core engine; it exists here only so cmd/ircd has
// a runnable daemon to start.
package accept

import (
	"crypto/tls"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/foxcpp/scandicd/errhelper"
	"github.com/foxcpp/scandicd/internal/conn"
	"github.com/foxcpp/scandicd/internal/config"
	"github.com/foxcpp/scandicd/internal/registry"
	"github.com/foxcpp/scandicd/internal/worker"
)

// Server owns every listener and the registry lifecycle.
type Server struct {
	Registry   *registry.Registry
	Dispatcher worker.Dispatcher
	Log        *zap.SugaredLogger

	QueueCapacity       int
	ReassemblerCapacity int

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
}

// Listen opens addr for plain-TCP IRC connections.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.addListener(l)
	return nil
}

// ListenTLS opens addr for TLS-wrapped IRC connections using cert/key.
// crypto/tls is stdlib; no ecosystem TLS-serving library appears
// anywhere in the reference corpus, see DESIGN.md.
func (s *Server) ListenTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return err
	}
	l, err := tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		return err
	}
	s.addListener(l)
	return nil
}

func (s *Server) addListener(l net.Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(l)
}

func (s *Server) acceptLoop(l net.Listener) {
	defer s.wg.Done()
	for {
		c, err := l.Accept()
		if err != nil {
			s.Log.Debugw("listener closed", "addr", l.Addr(), "err", err)
			return
		}

		rec := conn.New(c, s.QueueCapacity, s.ReassemblerCapacity)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			worker.Run(rec, s.Dispatcher, s.Log)
		}()
	}
}

// Start builds a Server from cfg and opens every configured listener.
// If any listener after the first fails to bind, every listener opened
// so far is closed before returning the error, using the teacher's
// errhelper.H cleanup-on-failure pattern so a bad TLS cert path doesn't
// leave an orphaned plaintext listener running.
func Start(cfg *config.Config, reg *registry.Registry, d worker.Dispatcher, log *zap.SugaredLogger) (*Server, error) {
	s := &Server{
		Registry:            reg,
		Dispatcher:          d,
		Log:                 log,
		QueueCapacity:       cfg.Limits.QueueCapacity,
		ReassemblerCapacity: cfg.Limits.ReassemblerCapacity,
	}

	h := errhelper.New("accept: start")
	h.Cleanup(s.Shutdown)

	for _, addr := range cfg.Listen.Addrs {
		if err := s.Listen(addr); err != nil {
			return nil, h.Fail(err)
		}
		log.Infow("listening", "addr", addr, "tls", false)
	}
	for _, addr := range cfg.Listen.TLSAddrs {
		if err := s.ListenTLS(addr, cfg.Listen.CertFile, cfg.Listen.KeyFile); err != nil {
			return nil, h.Fail(err)
		}
		log.Infow("listening", "addr", addr, "tls", true)
	}

	return s, nil
}

// Shutdown closes every listener and waits for every worker to exit,
// then destroys the registry, matching spec.md §5's shutdown ordering:
// stop accepting, let workers drain and unregister, only then destroy
// the global registry. It does not close open client connections, so it
// returns only after every connected client has disconnected.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for _, l := range s.listeners {
		l.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.Registry.Destroy()
}
