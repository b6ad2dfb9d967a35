package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "traces.jsonl")

	exporter, err := NewFileExporter(path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))
}

func TestFileExporter_WritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	stub := tracetest.SpanStub{
		Name:       SpanTokenizeLine,
		Parent:     parent,
		StartTime:  start,
		EndTime:    start.Add(1500 * time.Microsecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "budget"},
		Attributes: []attribute.KeyValue{attribute.String(AttrGrammarScope, "source.go"), attribute.Int(AttrTokenCount, 3)},
		Events: []sdktrace.Event{{
			Name:       "exception",
			Time:       start,
			Attributes: []attribute.KeyValue{attribute.String("exception.message", "boom")},
		}},
	}
	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.ExportSpans(context.Background(), nil))
	require.NoError(t, exporter.Shutdown(context.Background()))

	recs := readRecords(t, path)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.Equal(t, SpanTokenizeLine, rec.Name)
	require.Equal(t, parent.SpanID().String(), rec.ParentSpanID)
	require.Equal(t, int64(1500), rec.DurationUs)
	require.Equal(t, "ERROR", rec.Status)
	require.Equal(t, "budget", rec.StatusMsg)
	require.Equal(t, "source.go", rec.Attributes[AttrGrammarScope])
	require.EqualValues(t, 3, rec.Attributes[AttrTokenCount])
	require.Len(t, rec.Events, 1)
	require.Equal(t, "boom", rec.Events[0].Attributes["exception.message"])
}

func TestFileExporter_AfterShutdown(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()))

	stub := tracetest.SpanStub{Name: "late"}
	err = exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()})
	require.ErrorIs(t, err, errExporterClosed)
}

func TestStatusName(t *testing.T) {
	require.Equal(t, "OK", statusName(codes.Ok))
	require.Equal(t, "ERROR", statusName(codes.Error))
	require.Equal(t, "UNSET", statusName(codes.Unset))
}

func TestFail(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	Fail(span, errors.New("bad pattern"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, codes.Error, ended[0].Status().Code)
	require.Equal(t, "bad pattern", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}
