package server

import (
	"os"
	"os/signal"
)

// handleSignals sets up a handler for interrupts to do a graceful shutdown.
func (s *Server) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	s.mu.Lock()
	s.signalCh = c
	s.mu.Unlock()
	go func() {
		if _, ok := <-c; !ok {
			return
		}
		s.Stop()
		os.Exit(0)
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
