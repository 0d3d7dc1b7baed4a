package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/match-slot-booking/internal/booking"
)

// StartAuditConsumer connects to RabbitMQ and consumes both event
// queues, appending a human-readable line per event to logs/events.log.
// It runs a reconnect loop with exponential backoff and keeps running
// until the process exits; processing errors reject the message without
// requeueing so a poison message cannot wedge the consumer.
func StartAuditConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{confirmedQueue, promotedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	confirmed, err := ch.Consume(confirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", confirmedQueue, err)
	}
	promoted, err := ch.Consume(promotedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", promotedQueue, err)
	}

	for {
		select {
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("confirmed deliveries channel closed")
			}
			deliver(d, handleConfirmed)
		case d, ok := <-promoted:
			if !ok {
				return errors.New("promoted deliveries channel closed")
			}
			deliver(d, handlePromoted)
		}
	}
}

func deliver(d amqp.Delivery, handle func([]byte) (string, error)) {
	line, err := handle(d.Body)
	if err == nil {
		err = appendAuditLine(line)
	}
	if err != nil {
		log.Printf("audit-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleConfirmed(body []byte) (string, error) {
	var ev booking.BookingConfirmed
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | match_id=%d | total=%d cents | slots=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.MatchID, ev.TotalAmountCents, formatSlots(ev.SlotNumbers)), nil
}

func handlePromoted(body []byte) (string, error) {
	var ev booking.WaitlistPromoted
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	return fmt.Sprintf("[%s] Waitlist promoted | entry_id=%d | user_id=%d | match_id=%d | booking_id=%d | lock_id=%s | slots=%s\n",
		ev.ExpiresAt, ev.EntryID, ev.UserID, ev.MatchID, ev.BookingID, ev.LockID, formatSlots(ev.SlotNumbers)), nil
}

func formatSlots(nums []int) string {
	if len(nums) == 0 {
		return "[]"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}

func appendAuditLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
