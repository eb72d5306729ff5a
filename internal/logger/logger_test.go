package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	opts := DefaultOptions()
	opts.Output = buf
	opts.Level = "debug"
	return New(opts)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetStage(ctx, "fetch")

	CtxInfo(ctx, "listed %d files", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "job-1", line[FieldJobID])
	assert.Equal(t, "fetch", line[FieldStage])
	assert.Equal(t, "listed 3 files", line["message"])
	assert.Equal(t, "repobrief", line["service"])
	assert.Equal(t, "job-1", GetJobID(ctx))
}

func TestEntryMergesMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())

	With(Fields{FieldStatus: "ok"}).WithCount(2).WithProgress(55).Info(ctx, "embedded")

	line := decodeLine(t, &buf)
	assert.Equal(t, "ok", line[FieldStatus])
	assert.EqualValues(t, 2, line[FieldCount])
	assert.EqualValues(t, 55, line[FieldProgress])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestSyncWithoutFileIsNoop(t *testing.T) {
	assert.NoError(t, Sync())
}
