package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"FlatPull/internal/domain/models"
)

// ClassifyNetwork wraps transport-level failures as transient errors.
// Errors caused by the caller's own context are returned unchanged.
func ClassifyNetwork(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewTransient(models.TransientTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.NewTransient(models.TransientTimeout, err)
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return models.NewTransient(models.TransientReset, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.NewTransient(models.TransientReset, err)
	}
	return err
}

// ClassifyStatus maps an upstream HTTP status to the error taxonomy.
// It returns nil for statuses that are not failures.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %w", models.ErrEntitlement, err)
	case status == 408:
		return models.NewTransient(models.TransientTimeout, err)
	case status == 429:
		return models.NewTransient(models.TransientRateLimit, err)
	case status >= 500:
		return models.NewTransient(models.TransientServer, err)
	case status >= 400:
		return err
	}
	return nil
}
