package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Archiver writes transcript messages asynchronously so the bot
// dispatch path never blocks on the database. A full queue drops the
// oldest pending message.
type Archiver struct {
	repo   Repository
	queue  chan *Message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewArchiver creates an archiver over repo and starts its background
// writer.
func NewArchiver(repo Repository, queueSize int, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Archiver{
		repo:   repo,
		queue:  make(chan *Message, queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	a.wg.Add(1)
	go a.processQueue()

	return a
}

// Record queues one message for archival. Never blocks; satisfies the
// session's transcript hook.
func (a *Archiver) Record(channel, sender, text string, outbound bool) {
	msg := &Message{
		Channel:  channel,
		Sender:   sender,
		Text:     text,
		Outbound: outbound,
		At:       time.Now(),
	}

	select {
	case a.queue <- msg:
	case <-a.ctx.Done():
	default:
		a.logger.Warn("transcript queue full, dropping oldest entry", "queue_len", len(a.queue))
		select {
		case <-a.queue:
		default:
		}
		select {
		case a.queue <- msg:
		case <-a.ctx.Done():
		default:
		}
	}
}

func (a *Archiver) processQueue() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			// Flush what is already queued before exiting.
			for {
				select {
				case msg := <-a.queue:
					a.write(msg)
				default:
					return
				}
			}

		case msg := <-a.queue:
			a.write(msg)
		}
	}
}

func (a *Archiver) write(msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := a.repo.RecordMessage(ctx, msg); err != nil {
		a.logger.Warn("failed to archive message", "channel", msg.Channel, "error", err)
		return
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		a.logger.Warn("slow transcript write", "duration_ms", d.Milliseconds())
	}
}

// Close stops the archiver, flushing queued messages first. Bounded by
// a shutdown timeout so a wedged database cannot hang termination.
func (a *Archiver) Close() error {
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("transcript writer shutdown timeout", "queue_remaining", len(a.queue))
	}
	return nil
}
