package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"fenrir/internal/matching"
	"fenrir/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the matching server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'log']")

	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.Float64("price", 100.0, "Limit price")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	orderID := flag.Uint64("id", 0, "Order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	go readReports(conn)

	side := matching.SideBuy
	if strings.ToLower(*sideStr) == "sell" {
		side = matching.SideSell
	}

	orderType := matching.OrderTypeLimit
	if strings.ToLower(*typeStr) == "market" {
		orderType = matching.OrderTypeMarket
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			if err := sendPlaceOrder(conn, *owner, orderType, side, *price, q); err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", q, err)
			} else {
				fmt.Printf("-> Sent %s order: %d @ %.2f\n", strings.ToUpper(*sideStr), q, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for cancellation")
		}
		if err := sendCancelOrder(conn, *orderID, side, *price); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent cancel request for order %d\n", *orderID)
		}

	case "log":
		if err := sendLog(conn); err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent log request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: invalid quantity %q, skipping", p)
		}
	}
	return result
}

func sendPlaceOrder(conn net.Conn, owner string, orderType matching.OrderType, side matching.Side, price float64, qty uint64) error {
	buf := make([]byte, wire.BaseMessageHeaderLen+wire.NewOrderMessageHeaderLen+len(owner))

	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.NewOrder))
	binary.BigEndian.PutUint16(buf[2:4], uint16(orderType))
	binary.BigEndian.PutUint16(buf[4:6], uint16(side))
	binary.BigEndian.PutUint64(buf[6:14], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[14:22], qty)
	buf[22] = byte(len(owner))
	copy(buf[23:], owner)

	_, err := conn.Write(buf)
	return err
}

func sendCancelOrder(conn net.Conn, orderID uint64, side matching.Side, price float64) error {
	buf := make([]byte, wire.BaseMessageHeaderLen+8+1+8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], orderID)
	buf[10] = byte(side)
	binary.BigEndian.PutUint64(buf[11:19], math.Float64bits(price))

	_, err := conn.Write(buf)
	return err
}

func sendLog(conn net.Conn) error {
	buf := make([]byte, wire.BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf, uint16(wire.LogBook))
	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and renders Report messages from the
// server. Reports are read in one shot per Read call, matching the
// server's one-message-per-write behaviour; a production client would
// frame these explicitly, but the demonstration protocol does not.
func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Printf("connection lost: %v", err)
			os.Exit(0)
		}
		report, err := wire.DeserializeReport(buf[:n])
		if err != nil {
			log.Printf("malformed report: %v", err)
			continue
		}
		printReport(report)
	}
}

func printReport(r wire.Report) {
	sideStr := "BUY"
	if r.Side == matching.SideSell {
		sideStr = "SELL"
	}
	switch r.Type {
	case wire.ReportQueued:
		fmt.Printf("\n[QUEUED] %s order %d\n", sideStr, r.OrderID)
	case wire.ReportFill:
		fmt.Printf("\n[FILL] %s order %d | qty %d @ %.2f | vs %d\n", sideStr, r.OrderID, r.Quantity, r.Price, r.CounterpartyID)
	case wire.ReportAddedToBook:
		fmt.Printf("\n[RESTED] %s order %d | qty %d @ %.2f\n", sideStr, r.OrderID, r.Quantity, r.Price)
	case wire.ReportKilled:
		fmt.Printf("\n[KILLED] %s order %d | unfilled qty %d\n", sideStr, r.OrderID, r.Quantity)
	case wire.ReportError:
		fmt.Printf("\n[SERVER ERROR] %s\n", r.ErrStr)
	}
}
