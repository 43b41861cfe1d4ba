package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xfriends/database"
	"xfriends/models"
	"xfriends/utils"
)

// ApplyFriendAction changes the directed friendship rows between userID and
// targetID inside one transaction.
func ApplyFriendAction(ctx context.Context, db *sql.DB, userID, targetID string, action models.FriendAction) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := applyFriendAction(ctx, tx, userID, targetID, action, time.Now()); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func applyFriendAction(ctx context.Context, tx *sql.Tx, userID, targetID string, action models.FriendAction, now time.Time) error {
	switch action {
	case models.ActionRequestAdd:
		return addFriend(ctx, tx, userID, targetID, now)

	case models.ActionRequestCancel:
		return deleteRow(ctx, tx, userID, targetID, models.StatusPending, "friend request not found")

	case models.ActionRequestApprove:
		return acceptRequest(ctx, tx, userID, targetID, now)

	case models.ActionRequestDeny:
		return deleteRow(ctx, tx, targetID, userID, models.StatusPending, "friend request not found")

	case models.ActionRemove:
		res, err := tx.ExecContext(ctx,
			"DELETE FROM friendships WHERE status = 'accepted' AND ((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))",
			userID, targetID, targetID, userID,
		)
		if err != nil {
			return fmt.Errorf("delete friendship: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("not friends")
		}
		return nil

	case models.ActionBlock:
		out, err := statusBetween(ctx, tx, userID, targetID)
		if err != nil {
			return err
		}
		if out == models.StatusBlocked {
			return conflict("user already blocked")
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM friendships WHERE user_id = ? AND friend_id = ?",
			userID, targetID,
		); err != nil {
			return fmt.Errorf("clear outgoing: %w", err)
		}
		// the target's own block on the caller survives
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM friendships WHERE user_id = ? AND friend_id = ? AND status <> 'blocked'",
			targetID, userID,
		); err != nil {
			return fmt.Errorf("clear incoming: %w", err)
		}
		return insertRow(ctx, tx, userID, targetID, models.StatusBlocked, now)

	case models.ActionUnblock:
		return deleteRow(ctx, tx, userID, targetID, models.StatusBlocked, "user is not blocked")
	}

	return fmt.Errorf("unsupported action %q", action)
}

func addFriend(ctx context.Context, tx *sql.Tx, userID, targetID string, now time.Time) error {
	out, err := statusBetween(ctx, tx, userID, targetID)
	if err != nil {
		return err
	}
	in, err := statusBetween(ctx, tx, targetID, userID)
	if err != nil {
		return err
	}

	switch {
	case out == models.StatusBlocked || in == models.StatusBlocked:
		return conflict("relationship is blocked")
	case out == models.StatusAccepted:
		return conflict("already friends")
	case out == models.StatusPending:
		return conflict("friend request already sent")
	case in == models.StatusPending:
		return acceptRequest(ctx, tx, userID, targetID, now)
	}

	return insertRow(ctx, tx, userID, targetID, models.StatusPending, now)
}

// acceptRequest turns targetID's pending request into a mutual friendship.
func acceptRequest(ctx context.Context, tx *sql.Tx, userID, targetID string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE friendships SET status = 'accepted', updated_at = ? WHERE user_id = ? AND friend_id = ? AND status = 'pending'",
		database.ToMillis(now), targetID, userID,
	)
	if err != nil {
		return fmt.Errorf("accept request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("friend request not found")
	}
	return insertRow(ctx, tx, userID, targetID, models.StatusAccepted, now)
}

func statusBetween(ctx context.Context, tx *sql.Tx, from, to string) (string, error) {
	var status string
	err := tx.QueryRowContext(ctx,
		"SELECT status FROM friendships WHERE user_id = ? AND friend_id = ?",
		from, to,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read friendship: %w", err)
	}
	return status, nil
}

func insertRow(ctx context.Context, tx *sql.Tx, from, to, status string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO friendships (id, user_id, friend_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		utils.GenerateUUID(), from, to, status, database.ToMillis(now), database.ToMillis(now),
	)
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

func deleteRow(ctx context.Context, tx *sql.Tx, from, to, status, missing string) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM friendships WHERE user_id = ? AND friend_id = ? AND status = ?",
		from, to, status,
	)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(missing)
	}
	return nil
}
