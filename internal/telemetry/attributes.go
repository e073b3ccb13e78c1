// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on transfer spans.
const (
	OperationIDKey = "rename.operation_id"
	UserIDKey      = "rename.user_id"
	FileKindKey    = "rename.file_kind"
	FileSizeKey    = "rename.file_size"
	AsDocumentKey  = "rename.as_document"
	OutcomeKey     = "rename.outcome"
	OutputNameKey  = "rename.output_name"

	ErrorTypeKey = "error.type"
)

// TransferAttributes describes a transfer at start.
func TransferAttributes(operationID string, userID int64, kind string, size int64, asDocument bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(OperationIDKey, operationID),
		attribute.Int64(UserIDKey, userID),
		attribute.String(FileKindKey, kind),
		attribute.Int64(FileSizeKey, size),
		attribute.Bool(AsDocumentKey, asDocument),
	}
}

// OutcomeAttributes describes how a transfer ended.
func OutcomeAttributes(outcome, outputName string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(OutcomeKey, outcome)}
	if outputName != "" {
		attrs = append(attrs, attribute.String(OutputNameKey, outputName))
	}
	return attrs
}

// ErrorAttributes tags a span with an error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
