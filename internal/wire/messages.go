package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"fenrir/internal/matching"
)

var (
	ErrInvalidMessageType = errors.New("wire: invalid message type")
	ErrMessageTooShort    = errors.New("wire: message too short")
)

// MessageType tags the body that follows the 2-byte header.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

// Message format constants. The instrument is implicit (single-instrument
// engine, per scope): no asset/ticker field travels on the wire.
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 2 + 2 + 8 + 8 + 1 // orderType, side, price, qty, usernameLen
	CancelOrderMessageHeaderLen = 8 + 1 + 8         // orderID, side, price
)

// Message is anything that can be dispatched by MessageType after the
// shared header is stripped.
type Message interface {
	GetType() MessageType
}

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// ParseMessage strips the shared header and parses the remainder
// according to its declared type.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage is a client's request to place an order. OrderType and
// Side are the matching package's own enums, serialized as two bytes
// each so an unrecognized value survives the wire and is rejected by
// Order rather than by the parser. Order rejects it with
// matching.ErrInvalidOrder before the engine sees it, whatever the
// engine's RejectInvalid setting.
type NewOrderMessage struct {
	BaseMessage
	OrderType   matching.OrderType
	Side        matching.Side
	LimitPrice  float64
	Quantity    uint64
	UsernameLen uint8
	Username    string
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.OrderType = matching.OrderType(binary.BigEndian.Uint16(msg[0:2]))
	m.Side = matching.Side(binary.BigEndian.Uint16(msg[2:4]))
	m.LimitPrice = math.Float64frombits(binary.BigEndian.Uint64(msg[4:12]))
	m.Quantity = binary.BigEndian.Uint64(msg[12:20])
	m.UsernameLen = msg[20]

	expectedLen := NewOrderMessageHeaderLen + int(m.UsernameLen)
	if len(msg) < expectedLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[NewOrderMessageHeaderLen:expectedLen])
	return m, nil
}

// Order builds the matching.Order this message describes, assigning it
// id as the caller-supplied identity (the server mints ids; the wire
// format carries none, since the engine dedupes nothing itself).
func (m NewOrderMessage) Order(id uint64) (matching.Order, error) {
	switch m.OrderType {
	case matching.OrderTypeMarket:
		return matching.NewMarketOrder(id, m.Side, m.Quantity)
	case matching.OrderTypeLimit:
		return matching.NewLimitOrder(id, m.Side, matching.NewPriceFromFloat(m.LimitPrice), m.Quantity)
	default:
		return matching.Order{}, matching.ErrInvalidOrder
	}
}

// CancelOrderMessage asks the engine to withdraw a single resting order.
type CancelOrderMessage struct {
	BaseMessage
	OrderID uint64
	Side    matching.Side
	Price   float64
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.OrderID = binary.BigEndian.Uint64(msg[0:8])
	m.Side = matching.Side(msg[8])
	m.Price = math.Float64frombits(binary.BigEndian.Uint64(msg[9:17]))
	return m, nil
}

// ReportType tags a server-to-client report.
type ReportType uint8

const (
	ReportQueued ReportType = iota
	ReportFill
	ReportAddedToBook
	ReportKilled
	ReportError
)

// Report is the wire encoding of one of the engine's four callbacks
// (plus an out-of-band error report), used by Server to push execution
// updates to connected clients.
type Report struct {
	Type          ReportType
	Side          matching.Side
	OrderID       uint64
	CounterpartyID uint64
	Quantity      uint64
	Price         float64
	ErrStr        string
}

const reportFixedLen = 1 + 1 + 8 + 8 + 8 + 8 + 4 // type, side, orderID, counterpartyID, qty, price, errLen

// Serialize converts the report to its wire form.
func (r Report) Serialize() []byte {
	buf := make([]byte, reportFixedLen+len(r.ErrStr))
	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], r.OrderID)
	binary.BigEndian.PutUint64(buf[10:18], r.CounterpartyID)
	binary.BigEndian.PutUint64(buf[18:26], r.Quantity)
	binary.BigEndian.PutUint64(buf[26:34], math.Float64bits(r.Price))
	binary.BigEndian.PutUint32(buf[34:38], uint32(len(r.ErrStr)))
	copy(buf[reportFixedLen:], r.ErrStr)
	return buf
}

// DeserializeReport parses a Report previously produced by Serialize,
// used by the demo CLI client to render execution updates.
func DeserializeReport(buf []byte) (Report, error) {
	if len(buf) < reportFixedLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		Type:           ReportType(buf[0]),
		Side:           matching.Side(buf[1]),
		OrderID:        binary.BigEndian.Uint64(buf[2:10]),
		CounterpartyID: binary.BigEndian.Uint64(buf[10:18]),
		Quantity:       binary.BigEndian.Uint64(buf[18:26]),
		Price:          math.Float64frombits(binary.BigEndian.Uint64(buf[26:34])),
	}
	errLen := binary.BigEndian.Uint32(buf[34:38])
	if len(buf) < reportFixedLen+int(errLen) {
		return Report{}, ErrMessageTooShort
	}
	r.ErrStr = string(buf[reportFixedLen : reportFixedLen+int(errLen)])
	return r, nil
}
