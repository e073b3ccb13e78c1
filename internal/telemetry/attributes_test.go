// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestTransferAttributes(t *testing.T) {
	attrs := TransferAttributes("1_x", 1, "video", 1024, false)
	set := attribute.NewSet(attrs...)

	v, ok := set.Value(OperationIDKey)
	assert.True(t, ok)
	assert.Equal(t, "1_x", v.AsString())
	v, _ = set.Value(FileSizeKey)
	assert.Equal(t, int64(1024), v.AsInt64())
	v, _ = set.Value(AsDocumentKey)
	assert.False(t, v.AsBool())
}

func TestOutcomeAttributes(t *testing.T) {
	assert.Len(t, OutcomeAttributes("cancelled", ""), 1)
	assert.Len(t, OutcomeAttributes("success", "report.jpg"), 2)
	assert.Len(t, ErrorAttributes("download"), 2)
}
