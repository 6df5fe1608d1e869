// Package observability provides structured logging, metrics, and tracing
// for wirebus connection lifecycle events.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in: a nil *slog.Logger disables logging, and no-op
// implementations exist for metrics and tracing. The bus never fails because
// an observability collaborator is absent.
package observability

import (
	"log/slog"
	"time"
)

// LogPublisherStart logs a publisher binding its listener.
func LogPublisherStart(logger *slog.Logger, addr string) {
	if logger == nil {
		return
	}
	logger.Info("publisher listening",
		slog.String("addr", addr),
	)
}

// LogPublisherStop logs a publisher shutting down.
func LogPublisherStop(logger *slog.Logger, addr string, connections int) {
	if logger == nil {
		return
	}
	logger.Info("publisher stopped",
		slog.String("addr", addr),
		slog.Int("connections_closed", connections),
	)
}

// LogConnectionAccepted logs a new subscriber connection.
func LogConnectionAccepted(logger *slog.Logger, connID, remote string, total int) {
	if logger == nil {
		return
	}
	logger.Info("subscriber connected",
		slog.String("conn_id", connID),
		slog.String("remote", remote),
		slog.Int("connections", total),
	)
}

// LogConnectionRejected logs a connection refused at the limit.
func LogConnectionRejected(logger *slog.Logger, remote string, limit int) {
	if logger == nil {
		return
	}
	logger.Warn("connection rejected at limit",
		slog.String("remote", remote),
		slog.Int("max_connections", limit),
	)
}

// LogConnectionClosed logs a subscriber connection ending.
func LogConnectionClosed(logger *slog.Logger, connID, remote string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Info("subscriber disconnected",
			slog.String("conn_id", connID),
			slog.String("remote", remote),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("subscriber disconnected",
		slog.String("conn_id", connID),
		slog.String("remote", remote),
	)
}

// LogEviction logs a slow consumer being dropped because its outbound queue
// was full at publish time.
func LogEviction(logger *slog.Logger, connID, remote string, queueDepth int) {
	if logger == nil {
		return
	}
	logger.Warn("slow subscriber evicted",
		slog.String("conn_id", connID),
		slog.String("remote", remote),
		slog.Int("queue_depth", queueDepth),
	)
}

// LogConnectAttempt logs a subscriber dialing the publisher.
func LogConnectAttempt(logger *slog.Logger, addr string) {
	if logger == nil {
		return
	}
	logger.Debug("connecting to publisher",
		slog.String("addr", addr),
	)
}

// LogConnected logs a subscriber's successful connection.
func LogConnected(logger *slog.Logger, addr string) {
	if logger == nil {
		return
	}
	logger.Info("connected to publisher",
		slog.String("addr", addr),
	)
}

// LogConnectionLost logs a subscriber losing its connection.
func LogConnectionLost(logger *slog.Logger, addr string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("connection lost",
		slog.String("addr", addr),
		slog.String("error", err.Error()),
	)
}

// LogReconnectWait logs the delay before the next reconnect attempt.
func LogReconnectWait(logger *slog.Logger, addr string, delay time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("waiting before reconnect",
		slog.String("addr", addr),
		slog.Duration("delay", delay),
	)
}

// LogBufferDrop logs the oldest buffered event being discarded because the
// receive buffer was full.
func LogBufferDrop(logger *slog.Logger, topic string, droppedID uint64) {
	if logger == nil {
		return
	}
	logger.Warn("receive buffer full, dropped oldest event",
		slog.String("incoming_topic", topic),
		slog.Uint64("dropped_id", droppedID),
	)
}

// LogFrameError logs a malformed frame terminating a connection.
func LogFrameError(logger *slog.Logger, remote string, err error) {
	if logger == nil {
		return
	}
	logger.Error("protocol violation, closing connection",
		slog.String("remote", remote),
		slog.String("error", err.Error()),
	)
}
