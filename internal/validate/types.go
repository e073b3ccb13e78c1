// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

// LogLevel names a level accepted by the logger configuration.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// TraceExporter names an OTLP transport.
type TraceExporter string

const (
	TraceExporterGRPC TraceExporter = "grpc"
	TraceExporterHTTP TraceExporter = "http"
)

var (
	logLevels      = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	traceExporters = []TraceExporter{TraceExporterGRPC, TraceExporterHTTP}
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool { return contains(logLevels, l) }

// IsValid reports whether e is a known exporter.
func (e TraceExporter) IsValid() bool { return contains(traceExporters, e) }

// LogLevels lists the accepted level names for OneOf.
func LogLevels() []string { return names(logLevels) }

// TraceExporters lists the accepted exporter names for OneOf.
func TraceExporters() []string { return names(traceExporters) }

func contains[T ~string](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func names[T ~string](set []T) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
