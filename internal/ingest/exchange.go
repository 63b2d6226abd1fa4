package ingest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/models"
)

// Opener starts a streamed exchange with the chat backend. Client implements it.
type Opener interface {
	Open(ctx context.Context, message string) (*Stream, error)
}

// Sink receives the transitions of one exchange. *transcript.Transcript implements it.
type Sink interface {
	BeginStreaming(botID string) error
	AppendChunk(botID, chunk string) error
	Complete(botID string) error
	Fail(botID string) error
}

// Exchanger drives exchanges from submission to a terminal state.
type Exchanger struct {
	opener  Opener
	timeout time.Duration

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewExchanger creates an Exchanger. A zero timeout leaves exchanges unbounded; otherwise the whole
// exchange, body included, must finish within timeout.
func NewExchanger(opener Opener, timeout time.Duration, logger *slog.Logger) Exchanger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Exchanger{
		opener:  opener,
		timeout: timeout,
		logger:  logger.With(slog.String("module", "exchanger")),
	}
}

// Run sends ex.Payload and streams the reply into ex.BotMessageID, returning the state the exchange
// ended in (StateCompleted or StateErrored). It blocks until the body is exhausted, the backend fails,
// or ctx is done; callers usually run it on its own goroutine.
func (e Exchanger) Run(ctx context.Context, sink Sink, ex models.Exchange) models.ExchangeState {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger := e.logger.With(slog.String("exchangeID", ex.ID), slog.String("botMessageID", ex.BotMessageID))
	started := time.Now()

	stream, err := e.opener.Open(ctx, ex.Payload)
	if err != nil {
		logger.Error("Exchange failed before streaming", slog.String(errLoggerKey, err.Error()))
		return e.fail(logger, sink, ex)
	}

	if err := sink.BeginStreaming(ex.BotMessageID); err != nil {
		logger.Error("Failed to begin streaming", slog.String(errLoggerKey, err.Error()))
		stream.Close()
		return models.StateErrored
	}

	chunks := 0
	for text, err := range stream.Chunks() {
		if err != nil {
			logger.Error("Exchange failed while streaming",
				slog.Int("chunks", chunks),
				slog.String(errLoggerKey, err.Error()))
			return e.fail(logger, sink, ex)
		}
		if err := sink.AppendChunk(ex.BotMessageID, text); err != nil {
			logger.Error("Failed to append chunk", slog.String(errLoggerKey, err.Error()))
			return models.StateErrored
		}
		chunks++
	}

	// A deadline or shutdown can surface as a clean EOF from some transports.
	if err := ctx.Err(); err != nil {
		logger.Error("Exchange aborted", slog.String(errLoggerKey, err.Error()))
		return e.fail(logger, sink, ex)
	}

	if err := sink.Complete(ex.BotMessageID); err != nil {
		logger.Error("Failed to complete exchange", slog.String(errLoggerKey, err.Error()))
		return models.StateErrored
	}
	logger.Debug("Exchange completed",
		slog.Int("chunks", chunks),
		slog.Duration("elapsed", time.Since(started)))
	return models.StateCompleted
}

func (e Exchanger) fail(logger *slog.Logger, sink Sink, ex models.Exchange) models.ExchangeState {
	if err := sink.Fail(ex.BotMessageID); err != nil {
		logger.Error("Failed to mark exchange as errored", slog.String(errLoggerKey, err.Error()))
	}
	return models.StateErrored
}
