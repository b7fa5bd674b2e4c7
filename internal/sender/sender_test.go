package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/buffer"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

func init() {
	baseRetryDelay = time.Millisecond
}

func testBatch() models.Batch {
	return models.Batch{
		ID:     "batch-1",
		Host:   models.HostInfo{Hostname: "robot-01"},
		Charts: []models.Chart{{ID: "nodes_number", Type: models.ChartLine}},
		Snapshots: []models.Snapshot{
			{Timestamp: time.Unix(100, 0).UTC(), Collectors: map[string]models.Values{"rosnode": {"nodesnumber": int64(2)}}},
			{Timestamp: time.Unix(101, 0).UTC(), Collectors: map[string]models.Values{"rosnode": {"nodesnumber": int64(0)}}},
		},
	}
}

func TestHTTPSink_SendsCompressedBatch(t *testing.T) {
	var got models.Batch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Encoding") != "gzip" {
			t.Errorf("Content-Encoding = %q", r.Header.Get("Content-Encoding"))
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("gzip reader: %v", err)
			return
		}
		if err := json.NewDecoder(gz).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "tok", zap.NewNop())
	if err := sink.Send(context.Background(), testBatch()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ID != "batch-1" || len(got.Snapshots) != 2 || len(got.Charts) != 1 {
		t.Errorf("received batch = %+v", got)
	}
}

func TestHTTPSink_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "tok", zap.NewNop())
	if err := sink.Send(context.Background(), testBatch()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHTTPSink_RateLimitStopsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "tok", zap.NewNop())
	err := sink.Send(context.Background(), testBatch())
	if !isRateLimited(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestHTTPSink_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "tok", zap.NewNop())
	if err := sink.Send(context.Background(), testBatch()); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_OneMessagePerSnapshot(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, logger: zap.NewNop()}

	if err := sink.Send(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(w.msgs))
	}
	for i, msg := range w.msgs {
		if string(msg.Key) != "robot-01" {
			t.Errorf("msg[%d].Key = %q", i, msg.Key)
		}
		var b models.Batch
		if err := json.Unmarshal(msg.Value, &b); err != nil {
			t.Fatal(err)
		}
		if len(b.Snapshots) != 1 || b.ID != "batch-1" || len(b.Charts) != 1 {
			t.Errorf("msg[%d] batch = %+v", i, b)
		}
	}
	if !w.msgs[1].Time.Equal(time.Unix(101, 0)) {
		t.Errorf("msg[1].Time = %v", w.msgs[1].Time)
	}

	if err := sink.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v, closed = %v", err, w.closed)
	}
}

type failingSink struct{ calls int }

func (s *failingSink) Send(context.Context, models.Batch) error {
	s.calls++
	return errors.New("backend down")
}

func (s *failingSink) Close() error { return nil }

type recordingSink struct{ batches []models.Batch }

func (s *recordingSink) Send(_ context.Context, b models.Batch) error {
	s.batches = append(s.batches, b)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestDispatcher_BuffersOnFailureAndFlushesLater(t *testing.T) {
	buf, err := buffer.New(filepath.Join(t.TempDir(), "buf"), 50, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	catalog := func() []models.Chart { return []models.Chart{{ID: "nodes_info", Type: models.ChartString}} }
	host := models.HostInfo{Hostname: "robot-01"}

	down := &failingSink{}
	d := NewDispatcher(down, buf, host, "tok", catalog, zap.NewNop())
	d.Send(testBatch().Snapshots)
	if down.calls != 1 {
		t.Errorf("sink calls = %d, want 1", down.calls)
	}
	if buf.Count() != 1 {
		t.Fatalf("buffered = %d, want 1", buf.Count())
	}

	up := &recordingSink{}
	d = NewDispatcher(up, buf, host, "tok", catalog, zap.NewNop())
	d.FlushBuffer()
	if len(up.batches) != 1 {
		t.Fatalf("flushed = %d, want 1", len(up.batches))
	}
	got := up.batches[0]
	if got.ID == "" || got.Host.Hostname != "robot-01" || got.MachineToken != "tok" {
		t.Errorf("batch header = %+v", got)
	}
	if len(got.Charts) != 1 || got.Charts[0].ID != "nodes_info" {
		t.Errorf("charts = %+v", got.Charts)
	}
	if buf.Count() != 0 {
		t.Errorf("buffer not drained: %d", buf.Count())
	}
}

func TestDispatcher_AssignsFreshBatchIDs(t *testing.T) {
	rec := &recordingSink{}
	d := NewDispatcher(rec, nil, models.HostInfo{}, "", func() []models.Chart { return nil }, zap.NewNop())
	d.Send(nil)
	d.Send(nil)
	if len(rec.batches) != 2 || rec.batches[0].ID == rec.batches[1].ID {
		t.Errorf("batch ids = %q, %q", rec.batches[0].ID, rec.batches[1].ID)
	}
}
