//go:build !windows

package server

import (
	"os"
	"os/signal"
	"syscall"
)

// handleSignals sets up a handler for SIGINT to do a graceful shutdown and
// SIGHUP to reload the authorization policy.
func (s *Server) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGHUP)
	s.mu.Lock()
	s.signalCh = c
	s.mu.Unlock()
	// Use a naked goroutine instead of startGoroutine because this stops the
	// server which would cause a deadlock.
	go func() {
		for sig := range c {
			switch sig {
			case os.Interrupt:
				if err := s.Stop(); err != nil {
					s.logger.Errorf("Error occurred shutting down server while handling interrupt: %v", err)
					os.Exit(1)
				}
				os.Exit(0)

			case syscall.SIGHUP:
				if s.authz == nil {
					s.logger.Debug("Ignoring SIGHUP, authorization is disabled")
					continue
				}
				if err := s.authz.reload(); err != nil {
					s.logger.Errorf("Error occurred while reloading authorization policy: %v", err)
					continue
				}
				s.logger.Info("Reloaded authorization policy successfully")
			}
		}
	}()
}

// stopSignals stops signal delivery to the handler. Callers must hold s.mu.
func (s *Server) stopSignals() {
	if s.signalCh == nil {
		return
	}
	signal.Stop(s.signalCh)
	close(s.signalCh)
	s.signalCh = nil
}
