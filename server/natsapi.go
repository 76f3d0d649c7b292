package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/shiftd-io/shiftd/server/channel"
)

// Headers used by the NATS request/reply API. Errors are reported with
// their own headers since Status and Description are reserved by NATS.
const (
	HeaderSessionToken = "Session-Token"
	HeaderMaxBytes     = "Max-Bytes"
	HeaderCount        = "Count"
	HeaderStatus       = "Shiftd-Status"
	HeaderDescription  = "Shiftd-Description"
)

// NATS API operations. Open is addressed per channel, e.g.
// "shiftd.open.encrypt"; the others are addressed by session token.
const (
	natsOpOpen  = "open"
	natsOpWrite = "write"
	natsOpRead  = "read"
	natsOpClose = "close"
)

// NATSSubject returns the subject of an API operation in the namespace.
func NATSSubject(namespace, op string) string {
	return fmt.Sprintf("%s.%s", namespace, op)
}

func (s *Server) natsSubject(op string) string {
	return NATSSubject(s.config.Namespace, op)
}

// subscribeNATSAPI subscribes the request handlers of the NATS API.
func (s *Server) subscribeNATSAPI() error {
	handlers := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{s.natsSubject(natsOpOpen + ".*"), s.handleNATSOpen},
		{s.natsSubject(natsOpWrite), s.handleNATSWrite},
		{s.natsSubject(natsOpRead), s.handleNATSRead},
		{s.natsSubject(natsOpClose), s.handleNATSClose},
	}
	for _, h := range handlers {
		sub, err := s.nc.Subscribe(h.subject, h.handler)
		if err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s", h.subject)
		}
		s.natsSubs = append(s.natsSubs, sub)
	}
	return s.nc.Flush()
}

func (s *Server) handleNATSOpen(m *nats.Msg) {
	if m.Reply == "" {
		s.logger.Warn("Dropping open request with no reply inbox")
		return
	}
	name := m.Subject[strings.LastIndex(m.Subject, ".")+1:]
	s.logger.Debugf("nats api: Open [channel=%s]", name)
	sess, err := s.openSession("", name, false)
	if err != nil {
		s.respondNATSError(m, err)
		return
	}
	resp := nats.NewMsg(m.Reply)
	resp.Header.Set(HeaderSessionToken, sess.Token())
	s.respondNATS(m, resp)
}

func (s *Server) handleNATSWrite(m *nats.Msg) {
	if m.Reply == "" {
		s.logger.Warn("Dropping write request with no reply inbox")
		return
	}
	sess, err := s.natsSession(m)
	if err != nil {
		s.respondNATSError(m, err)
		return
	}
	s.logger.Debugf("nats api: Write [session=%s, bytes=%d]", sess.Token(), len(m.Data))
	n, err := sess.Write(m.Data)
	if err != nil {
		s.logger.Errorf("nats api: Failed to write to %s: %v", sess.Channel(), err)
		s.respondNATSError(m, err)
		return
	}
	resp := nats.NewMsg(m.Reply)
	resp.Header.Set(HeaderCount, strconv.Itoa(n))
	s.respondNATS(m, resp)
}

func (s *Server) handleNATSRead(m *nats.Msg) {
	if m.Reply == "" {
		s.logger.Warn("Dropping read request with no reply inbox")
		return
	}
	sess, err := s.natsSession(m)
	if err != nil {
		s.respondNATSError(m, err)
		return
	}
	max, err := strconv.ParseUint(m.Header.Get(HeaderMaxBytes), 10, 64)
	if err != nil {
		s.respondNATSError(m, errors.Wrapf(errInvalidArgument, "%s header: %v", HeaderMaxBytes, err))
		return
	}
	s.logger.Debugf("nats api: Read [session=%s, max=%d]", sess.Token(), max)
	chunk, err := sess.Read(readSize(max))
	if err != nil {
		s.logger.Errorf("nats api: Failed to read from %s: %v", sess.Channel(), err)
		s.respondNATSError(m, err)
		return
	}
	resp := nats.NewMsg(m.Reply)
	resp.Header.Set(HeaderCount, strconv.Itoa(len(chunk)))
	resp.Data = chunk
	s.respondNATS(m, resp)
}

func (s *Server) handleNATSClose(m *nats.Msg) {
	if m.Reply == "" {
		s.logger.Warn("Dropping close request with no reply inbox")
		return
	}
	token := m.Header.Get(HeaderSessionToken)
	if token == "" {
		s.respondNATSError(m, errMissingToken)
		return
	}
	s.logger.Debugf("nats api: Close [session=%s]", token)
	if err := s.sessions.close(token); err != nil {
		s.respondNATSError(m, err)
		return
	}
	s.respondNATS(m, nats.NewMsg(m.Reply))
}

func (s *Server) natsSession(m *nats.Msg) (*channel.Session, error) {
	token := m.Header.Get(HeaderSessionToken)
	if token == "" {
		return nil, errMissingToken
	}
	return s.sessions.get(token)
}

func (s *Server) respondNATSError(m *nats.Msg, err error) {
	resp := nats.NewMsg(m.Reply)
	resp.Header.Set(HeaderStatus, errorCode(err).String())
	resp.Header.Set(HeaderDescription, err.Error())
	s.respondNATS(m, resp)
}

func (s *Server) respondNATS(m *nats.Msg, resp *nats.Msg) {
	if err := m.RespondMsg(resp); err != nil {
		s.logger.Errorf("nats api: Failed to respond on %s: %v", m.Reply, err)
	}
}
