package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking_parser/internal/pipeline"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
	"booking_parser/internal/templates/generic"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

type failingStore struct{}

func (failingStore) SaveOrder(context.Context, storage.Record) error {
	return errors.New("database unavailable")
}

func (failingStore) GetOrder(context.Context, string) (*storage.Record, error) {
	return nil, storage.ErrNotFound
}

func (failingStore) ListOrders(context.Context, storage.ListParams) ([]storage.Record, error) {
	return nil, nil
}

const booking = `{"document":{"filename":"b.pdf","lines":"BOOKING CONFIRMATION\nACME LOGISTICS LTD\nRate: EUR 900\nLOADING: ACME FACTORY\n75001 PARIS\nDELIVERY: BETA WAREHOUSE\n69002 LYON"},"job_id":"job-7"}`

func newWorker(store storage.OrderStore) *Worker {
	reg := registry.New()
	reg.RegisterCatchAll(generic.New())
	reg.Sort()
	proc := &pipeline.Processor{Registry: reg, Store: store}
	return New(proc, Config{Subject: "documents.booking", ResultSubject: "orders.extracted"}, nil)
}

func TestHandle(t *testing.T) {
	w := newWorker(nil)

	reply, err := w.Handle(context.Background(), []byte(booking))
	require.NoError(t, err)
	assert.Equal(t, "job-7", reply.DocumentID)
	require.NotNil(t, reply.Outcome)
	assert.Equal(t, "generic", reply.Outcome.Template)
	assert.Empty(t, reply.Error)
	assert.Equal(t, Stats{Received: 1, Extracted: 1}, w.Stats())
}

func TestHandleRejects(t *testing.T) {
	w := newWorker(nil)

	_, err := w.Handle(context.Background(), []byte("not json"))
	assert.Error(t, err)

	reply, err := w.Handle(context.Background(), []byte(`{"id":"d1","lines":["", " "]}`))
	assert.Error(t, err)
	assert.Equal(t, "d1", reply.DocumentID)
	assert.NotEmpty(t, reply.Error)

	assert.Equal(t, Stats{Received: 2, Failed: 2}, w.Stats())
}

func TestHandleStoreFailure(t *testing.T) {
	w := newWorker(failingStore{})

	reply, err := w.Handle(context.Background(), []byte(booking))
	require.NoError(t, err)
	require.NotNil(t, reply.Outcome)
	assert.False(t, reply.Outcome.Stored)
	assert.Contains(t, reply.Error, "database unavailable")
}

func TestHandleMsg(t *testing.T) {
	w := newWorker(nil)
	pub := &fakePublisher{}

	w.HandleMsg(context.Background(), pub, &nats.Msg{
		Subject: "documents.booking",
		Reply:   "_INBOX.abc",
		Data:    []byte(booking),
	})

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "orders.extracted", pub.msgs[0].subject)
	assert.Equal(t, "_INBOX.abc", pub.msgs[1].subject)

	var reply Reply
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &reply))
	assert.Equal(t, "job-7", reply.DocumentID)
	require.NotNil(t, reply.Outcome)
	assert.Equal(t, "generic", reply.Outcome.Template)
}

func TestHandleMsgNoReply(t *testing.T) {
	w := newWorker(nil)
	w.cfg.ResultSubject = ""
	pub := &fakePublisher{}

	w.HandleMsg(context.Background(), pub, &nats.Msg{Subject: "documents.booking", Data: []byte(booking)})
	assert.Empty(t, pub.msgs)
}
