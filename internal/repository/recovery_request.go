// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/slabseller/accounts/internal/models"
)

const recoveryRequestColumns = `id, email, handle, send_time, expiry_time, used, used_time, disabled`

// CreateRecoveryRequest inserts a new recovery request and sets its ID.
// It does not touch other requests of the same owner.
func (r *Repository) CreateRecoveryRequest(ctx context.Context, req *models.RecoveryRequest) error {
	var expiry *time.Time
	if req.ExpiryTime != nil {
		t := req.ExpiryTime.UTC()
		expiry = &t
	}

	var id int64
	err := r.db.GetContext(ctx, &id, r.query(
		`INSERT INTO password_recovery_requests (email, handle, send_time, expiry_time, used, disabled)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		req.Email, req.Handle, req.SendTime.UTC(), expiry, false, false)
	if err != nil {
		return fmt.Errorf("inserting recovery request: %w", err)
	}

	req.ID = id
	req.Used = false
	req.UsedTime = nil
	req.Disabled = false
	return nil
}

// ListRecoveryRequestsForOwner returns every request ever issued for an owner.
func (r *Repository) ListRecoveryRequestsForOwner(ctx context.Context, email string) ([]models.RecoveryRequest, error) {
	var reqs []models.RecoveryRequest
	err := r.db.SelectContext(ctx, &reqs, r.query(
		`SELECT `+recoveryRequestColumns+` FROM password_recovery_requests WHERE email = ?`), email)
	if err != nil {
		return nil, fmt.Errorf("listing recovery requests: %w", err)
	}
	return reqs, nil
}

// GetRecoveryRequestByHandle looks up a request by its exact handle.
func (r *Repository) GetRecoveryRequestByHandle(ctx context.Context, handle string) (*models.RecoveryRequest, error) {
	var req models.RecoveryRequest
	err := r.db.GetContext(ctx, &req, r.query(
		`SELECT `+recoveryRequestColumns+` FROM password_recovery_requests WHERE handle = ?`), handle)
	if err != nil {
		return nil, wrapError(err)
	}
	return &req, nil
}

// InvalidateRecoveryRequestsForOwner disables every enabled request of an
// owner. Affecting zero rows is not an error.
func (r *Repository) InvalidateRecoveryRequestsForOwner(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, r.query(
		`UPDATE password_recovery_requests SET disabled = ? WHERE email = ? AND disabled = ?`),
		true, email, false)
	if err != nil {
		return fmt.Errorf("invalidating recovery requests: %w", err)
	}
	return nil
}

// MarkRecoveryRequestUsed records that a request was consumed at the given time.
func (r *Repository) MarkRecoveryRequestUsed(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.query(
		`UPDATE password_recovery_requests SET used = ?, used_time = ? WHERE id = ? AND used = ?`),
		true, at.UTC(), id, false)
	if err != nil {
		return fmt.Errorf("marking recovery request used: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking recovery request used: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
