package wire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"fenrir/internal/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	maxRecvSize      = 4 * 1024
	defaultNWorkers  = 10
	defaultConnIdle  = 30 * time.Second
)

var ErrImproperConversion = errors.New("wire: improper type conversion")

// clientSession is a connected TCP session; sessionID exists purely for
// structured logging, since a net.Conn's address can be reused quickly
// across reconnects.
type clientSession struct {
	conn      net.Conn
	sessionID string
}

type clientMessage struct {
	sessionAddr string
	message     Message
}

// Server is the demonstration TCP front end described as out of scope
// for the matching core itself (spec §1): it exists only to translate
// wire NewOrder/CancelOrder/LogBook requests into matching.Engine calls,
// and to translate the engine's four callbacks back into reports for
// the connections that are waiting on them.
type Server struct {
	address string
	port    int
	engine  *matching.Engine
	pool    WorkerPool

	cancel context.CancelFunc

	mu              sync.Mutex
	sessions        map[string]clientSession
	ordersBySession map[uint64]string
	lastRemaining   map[uint64]uint64
	nextOrderID     uint64
	clientMessages  chan clientMessage
}

// New builds a Server and the matching engine behind it. The engine is
// constructed here, not separately, because its callbacks must close
// over this Server to route reports back to the originating connection.
func New(address string, port int, cfg matching.Config) *Server {
	s := &Server{
		address:         address,
		port:            port,
		pool:            NewWorkerPool(defaultNWorkers),
		sessions:        make(map[string]clientSession),
		ordersBySession: make(map[uint64]string),
		lastRemaining:   make(map[uint64]uint64),
		clientMessages:  make(chan clientMessage, 1),
	}
	s.engine = matching.NewEngine(cfg, matching.Callbacks{
		OnQueued:      s.reportQueued,
		OnFill:        s.reportFill,
		OnAddedToBook: s.reportAddedToBook,
		OnKilled:      s.reportKilled,
	})
	return s
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.engine.Shutdown(); err != nil {
		log.Error().Err(err).Msg("matching engine shutdown returned an error")
	}
}

func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("unable to start listener: %w", err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("matching server listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			sessionID := uuid.New().String()
			s.addSession(conn, sessionID)
			log.Info().Str("address", conn.RemoteAddr().String()).Str("session", sessionID).Msg("client connected")
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("session", msg.sessionAddr).Msg("error handling message")
				s.sendError(msg.sessionAddr, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch msg.message.GetType() {
	case NewOrder:
		m, ok := msg.message.(NewOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.handleNewOrder(msg.sessionAddr, m)
	case CancelOrder:
		m, ok := msg.message.(CancelOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.Cancel(m.OrderID, m.Side, matching.NewPriceFromFloat(m.Price))
	case LogBook:
		snap, err := s.engine.Snapshot()
		if err != nil {
			return err
		}
		log.Info().Int("bidLevels", len(snap.Bids)).Int("askLevels", len(snap.Asks)).Msg("book snapshot")
		return nil
	case Heartbeat:
		return nil
	default:
		return ErrInvalidMessageType
	}
}

func (s *Server) handleNewOrder(sessionAddr string, m NewOrderMessage) error {
	s.mu.Lock()
	s.nextOrderID++
	id := s.nextOrderID
	s.ordersBySession[id] = sessionAddr
	s.mu.Unlock()

	order, err := m.Order(id)
	if err != nil {
		return err
	}
	return s.engine.Submit(order)
}

func (s *Server) reportQueued(o matching.Order) {
	log.Debug().Uint64("id", o.ID()).Msg("order queued")
}

// reportFill derives this pairing's traded quantity from the decrease in
// each order's remaining quantity since the last time it was observed
// (invariant: trade quantity equals that decrease), since the callback
// contract passes post-fill snapshots rather than a quantity field
// directly.
func (s *Server) reportFill(incoming, resting matching.Order) {
	qty := s.tradeQuantity(resting)
	s.tradeQuantity(incoming) // keep incoming's own baseline current too

	s.send(incoming.ID(), Report{
		Type:           ReportFill,
		Side:           incoming.Side(),
		OrderID:        incoming.ID(),
		CounterpartyID: resting.ID(),
		Quantity:       qty,
		Price:          priceToFloat(resting.Price()),
	})
	s.send(resting.ID(), Report{
		Type:           ReportFill,
		Side:           resting.Side(),
		OrderID:        resting.ID(),
		CounterpartyID: incoming.ID(),
		Quantity:       qty,
		Price:          priceToFloat(resting.Price()),
	})
	if resting.IsFilled() {
		s.forgetOrder(resting.ID())
		s.forgetRemaining(resting.ID())
	}
	if incoming.IsFilled() {
		s.forgetOrder(incoming.ID())
		s.forgetRemaining(incoming.ID())
	}
}

// tradeQuantity returns how much o's remaining quantity dropped since
// the last call observing this order id, treating the first observation
// as a baseline of its initial quantity.
func (s *Server) tradeQuantity(o matching.Order) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.lastRemaining[o.ID()]
	if !ok {
		prev = o.InitialQuantity()
	}
	delta := prev - o.RemainingQuantity()
	s.lastRemaining[o.ID()] = o.RemainingQuantity()
	return delta
}

func (s *Server) forgetRemaining(orderID uint64) {
	s.mu.Lock()
	delete(s.lastRemaining, orderID)
	s.mu.Unlock()
}

func (s *Server) reportAddedToBook(o matching.Order) {
	s.send(o.ID(), Report{
		Type:     ReportAddedToBook,
		Side:     o.Side(),
		OrderID:  o.ID(),
		Quantity: o.RemainingQuantity(),
		Price:    priceToFloat(o.Price()),
	})
}

func (s *Server) reportKilled(o matching.Order) {
	s.send(o.ID(), Report{
		Type:     ReportKilled,
		Side:     o.Side(),
		OrderID:  o.ID(),
		Quantity: o.RemainingQuantity(),
	})
	s.forgetOrder(o.ID())
	s.forgetRemaining(o.ID())
}

func (s *Server) sendError(sessionAddr string, cause error) {
	s.mu.Lock()
	session, ok := s.sessions[sessionAddr]
	s.mu.Unlock()
	if !ok {
		return
	}
	report := Report{Type: ReportError, ErrStr: cause.Error()}
	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("session", sessionAddr).Msg("failed to deliver error report")
	}
}

// send routes a report to whichever connection originally submitted
// orderID, looking it up under the same lock that handleNewOrder used
// to record it.
func (s *Server) send(orderID uint64, report Report) {
	s.mu.Lock()
	sessionAddr, ok := s.ordersBySession[orderID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	session, ok := s.sessions[sessionAddr]
	s.mu.Unlock()
	if !ok {
		return
	}
	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("session", sessionAddr).Msg("failed to deliver report")
		s.deleteSession(sessionAddr)
	}
}

func (s *Server) forgetOrder(orderID uint64) {
	s.mu.Lock()
	delete(s.ordersBySession, orderID)
	s.mu.Unlock()
}

// handleConnection reads exactly one message per read, parses and
// forwards it to sessionHandler, and re-queues the connection for the
// next read. A connection that errors or idles past defaultConnIdle is
// dropped.
func (s *Server) handleConnection(t *tomb.Tomb, taskValue any) error {
	conn, ok := taskValue.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnIdle)); err != nil {
		log.Error().Err(err).Msg("failed to set connection deadline")
		conn.Close()
		return nil
	}

	select {
	case <-t.Dying():
		conn.Close()
		return nil
	default:
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		s.deleteSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	message, err := ParseMessage(buffer[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
		s.deleteSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	s.clientMessages <- clientMessage{sessionAddr: conn.RemoteAddr().String(), message: message}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn, sessionID: sessionID}
}

func (s *Server) deleteSession(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, addr)
}

func priceToFloat(p matching.Price) float64 {
	if !p.IsValid() {
		return 0
	}
	return float64(p.Integral()) + float64(p.Fractional())/10000.0
}
