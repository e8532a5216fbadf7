// Package worker consumes converted documents from a NATS queue group and
// publishes extraction results.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"booking_parser/internal/document"
	"booking_parser/internal/pipeline"
)

// Config selects the subjects the worker uses.
type Config struct {
	Subject       string // Inbound documents.
	Queue         string // Queue group shared by all worker instances.
	ResultSubject string // Optional; every reply is also published here.
	Workers       int
}

// Publisher is the subset of *nats.Conn the worker publishes through.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Reply is published for every consumed message.
type Reply struct {
	DocumentID string            `json:"document_id,omitempty"`
	Outcome    *pipeline.Outcome `json:"outcome,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Stats counts handled messages.
type Stats struct {
	Received  int64 `json:"received"`
	Extracted int64 `json:"extracted"`
	Failed    int64 `json:"failed"`
}

// Worker runs documents from the queue through a Processor.
type Worker struct {
	proc   *pipeline.Processor
	cfg    Config
	logger *slog.Logger

	received  atomic.Int64
	extracted atomic.Int64
	failed    atomic.Int64
}

// New creates a worker.
func New(proc *pipeline.Processor, cfg Config, logger *slog.Logger) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{proc: proc, cfg: cfg, logger: logger}
}

// Stats returns the message counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Received:  w.received.Load(),
		Extracted: w.extracted.Load(),
		Failed:    w.failed.Load(),
	}
}

// Handle decodes and processes one message body. The reply always carries
// either an outcome or an error; a non-nil error means nothing was
// extracted.
func (w *Worker) Handle(ctx context.Context, data []byte) (Reply, error) {
	w.received.Add(1)

	doc, err := document.Decode(data)
	if err != nil {
		w.failed.Add(1)
		return Reply{Error: err.Error()}, fmt.Errorf("decode: %w", err)
	}

	out, err := w.proc.Process(ctx, doc)
	if out == nil {
		w.failed.Add(1)
		return Reply{DocumentID: doc.ID, Error: err.Error()}, err
	}

	w.extracted.Add(1)
	reply := Reply{DocumentID: doc.ID, Outcome: out}
	if err != nil {
		// Extracted but not stored.
		reply.Error = err.Error()
	}
	return reply, nil
}

// HandleMsg processes msg and publishes the reply to the result subject
// and to msg.Reply when the producer asked for one.
func (w *Worker) HandleMsg(ctx context.Context, pub Publisher, msg *nats.Msg) {
	start := time.Now()
	reply, err := w.Handle(ctx, msg.Data)
	if err != nil {
		w.logger.Warn("document rejected", "subject", msg.Subject, "document", reply.DocumentID, "error", err)
	}

	data, err := json.Marshal(reply)
	if err != nil {
		w.logger.Error("marshal reply", "document", reply.DocumentID, "error", err)
		return
	}

	if w.cfg.ResultSubject != "" {
		if err := pub.Publish(w.cfg.ResultSubject, data); err != nil {
			w.logger.Error("publish result", "subject", w.cfg.ResultSubject, "error", err)
		}
	}
	if msg.Reply != "" {
		if err := pub.Publish(msg.Reply, data); err != nil {
			w.logger.Error("respond", "reply", msg.Reply, "error", err)
		}
	}

	w.logger.Debug("message handled", "document", reply.DocumentID, "took", time.Since(start))
}

// Run subscribes to the queue group and processes messages on cfg.Workers
// goroutines until ctx is cancelled. Messages already buffered when ctx
// ends are still processed.
func (w *Worker) Run(ctx context.Context, nc *nats.Conn) error {
	if w.cfg.Subject == "" {
		return errors.New("worker: no subject configured")
	}

	msgs := make(chan *nats.Msg, w.cfg.Workers*4)
	sub, err := nc.ChanQueueSubscribe(w.cfg.Subject, w.cfg.Queue, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.cfg.Subject, err)
	}
	w.logger.Info("worker subscribed", "subject", w.cfg.Subject, "queue", w.cfg.Queue, "workers", w.cfg.Workers)

	// Processing outlives cancellation so in-flight documents are stored.
	procCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < w.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case msg := <-msgs:
					w.HandleMsg(procCtx, nc, msg)
				case <-ctx.Done():
					w.drain(procCtx, nc, msgs)
					return nil
				}
			}
		})
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		w.logger.Warn("unsubscribe", "error", err)
	}
	_ = g.Wait()

	if err := nc.Flush(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("flush: %w", err)
	}
	s := w.Stats()
	w.logger.Info("worker stopped", "received", s.Received, "extracted", s.Extracted, "failed", s.Failed)
	return nil
}

func (w *Worker) drain(ctx context.Context, pub Publisher, msgs <-chan *nats.Msg) {
	for {
		select {
		case msg := <-msgs:
			w.HandleMsg(ctx, pub, msg)
		default:
			return
		}
	}
}
