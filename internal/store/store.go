// Package store defines storage interfaces for persisting and retrieving
// price observations and executed fills.
package store

import (
	"context"
	"time"

	"tradewind/internal/domain"
)

// ObservationStore persists and retrieves price observation history.
type ObservationStore interface {
	// WriteObservations persists a batch of observations to storage.
	WriteObservations(ctx context.Context, obs []domain.PriceObservation) error

	// ReadObservations returns observations for the given instrument within
	// [start, end], ordered by timestamp ascending.
	ReadObservations(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PriceObservation, error)

	// ListInstruments returns all distinct instruments with stored history.
	ListInstruments(ctx context.Context) ([]string, error)
}

// FillStore persists the fill log. The log is append-only; it is the durable
// source of truth a session resumes from.
type FillStore interface {
	// SaveFill appends one fill. Saving the same order_ref twice is an error.
	SaveFill(ctx context.Context, fill domain.Fill) error

	// ListFills returns all recorded fills ordered by timestamp ascending.
	ListFills(ctx context.Context) ([]domain.Fill, error)
}
