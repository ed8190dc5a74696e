package nats

import (
	"errors"
	"time"

	"github.com/keepvault/onboard/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// JetStream limits for the embedded server. Wizard records are small JSON
// documents, one per wizard id, so the store is capped well below the
// server defaults.
const (
	maxStoreBytes  = 64 << 20
	maxMemoryBytes = 8 << 20

	readyTimeout    = 4 * time.Second
	drainTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// startServer runs an in-process JetStream server persisting to dataDir.
func startServer(dataDir string) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName:         "onboard",
		JetStream:          true,
		StoreDir:           dataDir,
		JetStreamMaxStore:  maxStoreBytes,
		JetStreamMaxMemory: maxMemoryBytes,
		DontListen:         true,
		NoSigs:             true, // the TUI owns signal handling
	})
	if err != nil {
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}
	logger.Debug("Embedded NATS ready (store dir %s)", dataDir)
	return ns, nil
}

// stop drains nc and shuts ns down. Both steps are bounded so a wedged
// server never blocks process exit.
func stop(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drained := make(chan error, 1)
		go func() { drained <- nc.Drain() }()

		select {
		case err := <-drained:
			if err != nil {
				logger.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(drainTimeout):
			logger.Warn("NATS drain timed out, forcing close")
			nc.Close()
		}
	}

	if ns == nil {
		return nil
	}
	ns.Shutdown()

	done := make(chan struct{})
	go func() {
		ns.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(shutdownTimeout):
		return errors.New("NATS server shutdown timed out")
	}
}
