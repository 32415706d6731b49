package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := newProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "alerts", []byte("price"), map[string]string{"title": "hi"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "alerts", w.msgs[0].Topic)
	assert.Equal(t, []byte("price"), w.msgs[0].Key)
	assert.JSONEq(t, `{"title":"hi"}`, string(w.msgs[0].Value))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgsTotal.WithLabelValues("alerts", "gzip", "ok")))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishPassesRawBytes(t *testing.T) {
	w := &recordingWriter{}
	p := newProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "t", nil, []byte("raw")))
	assert.Equal(t, []byte("raw"), w.msgs[0].Value)
}

func TestPublishErrorCounted(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newProducerWithWriter(w, "lz4")

	err := p.Publish(context.Background(), "t", nil, "x")
	assert.EqualError(t, err, "broker down")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgsTotal.WithLabelValues("t", "lz4", "error")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewProducerRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithRegisterer(reg))
	require.NoError(t, err)
	defer p.Close()

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithRegisterer(reg))
	assert.Error(t, err, "second registration on the same registry collides")
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
