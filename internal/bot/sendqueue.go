package bot

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// sendQueue serializes and paces outbound lines for one connection.
// Queued lines are transmitted strictly FIFO with at least interval
// between them (server flood control). SendNow bypasses both the queue
// and the pacing for keepalive replies, where latency is
// protocol-critical. The queue is bounded; on overflow the oldest
// queued line is dropped and logged — reply delivery is best-effort.
type sendQueue struct {
	conn     net.Conn
	interval time.Duration
	logger   *slog.Logger

	ch   chan string
	done chan struct{}

	// wmu serializes writes to the conn between the pacing loop and
	// SendNow callers.
	wmu  sync.Mutex
	last time.Time

	errOnce   sync.Once
	errCh     chan error
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newSendQueue(conn net.Conn, interval time.Duration, capacity int, logger *slog.Logger) *sendQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 32
	}
	q := &sendQueue{
		conn:     conn,
		interval: interval,
		logger:   logger,
		ch:       make(chan string, capacity),
		done:     make(chan struct{}),
		errCh:    make(chan error, 1),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Enqueue queues a line for paced transmission. Safe to call from any
// goroutine, including after Close (the line is dropped).
func (q *sendQueue) Enqueue(line string) {
	select {
	case <-q.done:
		return
	default:
	}

	select {
	case q.ch <- line:
		return
	default:
	}

	// Queue full: drop the oldest queued line to make room.
	select {
	case dropped := <-q.ch:
		q.logger.Warn("send queue full, dropping oldest message", "dropped", dropped)
	default:
	}
	select {
	case q.ch <- line:
	case <-q.done:
	default:
		q.logger.Warn("send queue full, dropping message", "dropped", line)
	}
}

// SendNow transmits a line immediately, skipping the queue and the
// pacing delay. Used for PONG replies and liveness probes.
func (q *sendQueue) SendNow(line string) {
	select {
	case <-q.done:
		return
	default:
	}
	q.write(line)
}

// Err reports the first write failure. The session treats it as a
// transport error and reconnects.
func (q *sendQueue) Err() <-chan error {
	return q.errCh
}

// Close stops the pacing loop. It does not close the conn; the
// session owns the transport.
func (q *sendQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *sendQueue) loop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case line := <-q.ch:
			if !q.pace() {
				return
			}
			q.write(line)
		}
	}
}

// pace waits until at least interval has passed since the last paced
// write. Returns false when the queue is closed during the wait.
func (q *sendQueue) pace() bool {
	q.wmu.Lock()
	wait := q.interval - time.Since(q.last)
	q.wmu.Unlock()
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-q.done:
		return false
	case <-timer.C:
		return true
	}
}

func (q *sendQueue) write(line string) {
	q.wmu.Lock()
	defer q.wmu.Unlock()
	if _, err := q.conn.Write([]byte(line + "\r\n")); err != nil {
		q.fail(err)
		return
	}
	q.last = time.Now()
}

func (q *sendQueue) fail(err error) {
	q.errOnce.Do(func() {
		q.errCh <- err
	})
}
