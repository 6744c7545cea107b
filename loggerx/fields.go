package loggerx

import (
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

const errorKey = "error"

// fields converts span attributes into slog attributes so the same key/values
// can be put on spans and log records.
func fields(kvs ...attribute.KeyValue) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kvs))
	for _, kv := range kvs {
		key := string(kv.Key)
		switch kv.Value.Type() {
		case attribute.BOOL:
			attrs = append(attrs, slog.Bool(key, kv.Value.AsBool()))
		case attribute.INT64:
			attrs = append(attrs, slog.Int64(key, kv.Value.AsInt64()))
		case attribute.FLOAT64:
			attrs = append(attrs, slog.Float64(key, kv.Value.AsFloat64()))
		case attribute.STRING:
			attrs = append(attrs, slog.String(key, kv.Value.AsString()))
		default:
			attrs = append(attrs, slog.Any(key, kv.Value.AsInterface()))
		}
	}
	return attrs
}
