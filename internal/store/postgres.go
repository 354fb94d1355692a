package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/addisrent/addisrent/internal/model"
)

// PostgresStore implements Store on PostgreSQL. Variable-shape fields
// (trust history, review lists, transaction metadata) are kept as JSONB;
// everything queried on gets its own column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects and verifies the DSN.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trust_profiles (
			user_id       TEXT PRIMARY KEY,
			score         INTEGER NOT NULL,
			level         TEXT NOT NULL,
			verifications JSONB NOT NULL DEFAULT '[]',
			history       JSONB NOT NULL DEFAULT '[]',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id           TEXT PRIMARY KEY,
			available_balance NUMERIC(18,2) NOT NULL,
			held_balance      NUMERIC(18,2) NOT NULL,
			total_deposits    NUMERIC(18,2) NOT NULL,
			total_withdrawals NUMERIC(18,2) NOT NULL,
			total_earnings    NUMERIC(18,2) NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS escrows (
			booking_id  TEXT PRIMARY KEY,
			renter_id   TEXT NOT NULL,
			owner_id    TEXT NOT NULL,
			amount      NUMERIC(18,2) NOT NULL,
			state       TEXT NOT NULL,
			released_to TEXT,
			created_at  TIMESTAMPTZ NOT NULL,
			released_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			type        TEXT NOT NULL,
			amount      NUMERIC(18,2) NOT NULL,
			status      TEXT NOT NULL,
			provider    TEXT NOT NULL DEFAULT '',
			reference   TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			metadata    JSONB,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id                 TEXT PRIMARY KEY,
			booking_id         TEXT NOT NULL,
			payer_id           TEXT NOT NULL,
			owner_id           TEXT NOT NULL,
			provider           TEXT NOT NULL,
			base_amount        NUMERIC(18,2) NOT NULL,
			tax                NUMERIC(18,2) NOT NULL,
			service_fee        NUMERIC(18,2) NOT NULL,
			total_amount       NUMERIC(18,2) NOT NULL,
			status             TEXT NOT NULL,
			transaction_id     TEXT NOT NULL DEFAULT '',
			provider_reference TEXT NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking ON payments (booking_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id          TEXT PRIMARY KEY,
			booking_id  TEXT NOT NULL,
			reviewer_id TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			doc         JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			UNIQUE (booking_id, reviewer_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_target ON reviews (target_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_reviewer ON reviews (reviewer_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS review_reports (
			id         TEXT PRIMARY KEY,
			review_id  TEXT NOT NULL,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Trust profiles

func (s *PostgresStore) GetTrustProfile(ctx context.Context, userID string) (model.TrustProfile, error) {
	query := `
		SELECT user_id, score, level, verifications, history, created_at, updated_at
		FROM trust_profiles WHERE user_id = $1
	`
	var p model.TrustProfile
	var verifications, history []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Score, &p.Level, &verifications, &history, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TrustProfile{}, ErrNotFound
	}
	if err != nil {
		return model.TrustProfile{}, fmt.Errorf("get trust profile: %w", err)
	}
	if err := json.Unmarshal(verifications, &p.Verifications); err != nil {
		return model.TrustProfile{}, fmt.Errorf("decode verifications: %w", err)
	}
	if err := json.Unmarshal(history, &p.History); err != nil {
		return model.TrustProfile{}, fmt.Errorf("decode history: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpsertTrustProfile(ctx context.Context, p model.TrustProfile) error {
	verifications, err := json.Marshal(p.Verifications)
	if err != nil {
		return fmt.Errorf("encode verifications: %w", err)
	}
	history, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	query := `
		INSERT INTO trust_profiles (user_id, score, level, verifications, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET score = $2, level = $3, verifications = $4, history = $5, updated_at = $7
	`
	_, err = s.db.ExecContext(ctx, query, p.UserID, p.Score, p.Level, verifications, history, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert trust profile: %w", err)
	}
	return nil
}

// Wallets

func (s *PostgresStore) GetWallet(ctx context.Context, userID string) (model.Wallet, error) {
	query := `
		SELECT user_id, available_balance, held_balance, total_deposits, total_withdrawals, total_earnings, updated_at
		FROM wallets WHERE user_id = $1
	`
	var w model.Wallet
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&w.UserID, &w.AvailableBalance, &w.HeldBalance,
		&w.TotalDeposits, &w.TotalWithdrawals, &w.TotalEarnings, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Wallet{}, ErrNotFound
	}
	if err != nil {
		return model.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) UpsertWallet(ctx context.Context, w model.Wallet) error {
	query := `
		INSERT INTO wallets (user_id, available_balance, held_balance, total_deposits, total_withdrawals, total_earnings, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET available_balance = $2, held_balance = $3, total_deposits = $4,
		    total_withdrawals = $5, total_earnings = $6, updated_at = $7
	`
	_, err := s.db.ExecContext(ctx, query,
		w.UserID, w.AvailableBalance, w.HeldBalance,
		w.TotalDeposits, w.TotalWithdrawals, w.TotalEarnings, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

// Escrows

func (s *PostgresStore) GetEscrow(ctx context.Context, bookingID string) (model.Escrow, error) {
	query := `
		SELECT booking_id, renter_id, owner_id, amount, state, released_to, created_at, released_at
		FROM escrows WHERE booking_id = $1
	`
	return s.scanEscrow(s.db.QueryRowContext(ctx, query, bookingID))
}

func (s *PostgresStore) SaveEscrow(ctx context.Context, e model.Escrow) error {
	query := `
		INSERT INTO escrows (booking_id, renter_id, owner_id, amount, state, released_to, created_at, released_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.BookingID, e.RenterID, e.OwnerID, e.Amount, e.State, string(e.ReleasedTo), e.CreatedAt, e.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("save escrow: %w", err)
	}
	return nil
}

func (s *PostgresStore) TransitionEscrow(ctx context.Context, bookingID string, from, to model.EscrowState, releasedTo model.ReleaseTarget, at time.Time) (model.Escrow, error) {
	// The WHERE state = $2 guard makes this a compare-and-swap; the
	// losing writer updates nothing.
	query := `
		UPDATE escrows SET state = $3, released_to = $4, released_at = $5
		WHERE booking_id = $1 AND state = $2
		RETURNING booking_id, renter_id, owner_id, amount, state, released_to, created_at, released_at
	`
	e, err := s.scanEscrowErr(s.db.QueryRowContext(ctx, query, bookingID, from, to, releasedTo, at))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Escrow{}, err
	}

	var exists bool
	if cerr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM escrows WHERE booking_id = $1)`, bookingID).Scan(&exists); cerr != nil {
		return model.Escrow{}, fmt.Errorf("check escrow: %w", cerr)
	}
	if !exists {
		return model.Escrow{}, ErrNotFound
	}
	return model.Escrow{}, ErrConflict
}

func (s *PostgresStore) scanEscrow(row *sql.Row) (model.Escrow, error) {
	return s.scanEscrowErr(row)
}

func (s *PostgresStore) scanEscrowErr(row *sql.Row) (model.Escrow, error) {
	var e model.Escrow
	var releasedTo sql.NullString
	var releasedAt sql.NullTime
	err := row.Scan(&e.BookingID, &e.RenterID, &e.OwnerID, &e.Amount, &e.State, &releasedTo, &e.CreatedAt, &releasedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Escrow{}, ErrNotFound
	}
	if err != nil {
		return model.Escrow{}, fmt.Errorf("scan escrow: %w", err)
	}
	if releasedTo.Valid {
		e.ReleasedTo = model.ReleaseTarget(releasedTo.String)
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		e.ReleasedAt = &t
	}
	return e, nil
}

// Transactions

func (s *PostgresStore) SaveTransaction(ctx context.Context, tx model.Transaction) error {
	var metadata []byte
	if tx.Metadata != nil {
		var err error
		metadata, err = json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}

	query := `
		INSERT INTO transactions (id, user_id, type, amount, status, provider, reference, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Status,
		tx.Provider, tx.Reference, tx.Description, metadata, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, status, provider, reference, description, metadata, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		var metadata []byte
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Status,
			&tx.Provider, &tx.Reference, &tx.Description, &metadata, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Payments

func (s *PostgresStore) SavePayment(ctx context.Context, p model.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, payer_id, owner_id, provider, base_amount, tax, service_fee, total_amount, status, transaction_id, provider_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.BookingID, p.PayerID, p.OwnerID, p.Provider,
		p.BaseAmount, p.Tax, p.ServiceFee, p.TotalAmount,
		p.Status, p.TransactionID, p.ProviderReference, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	query := `
		SELECT id, booking_id, payer_id, owner_id, provider, base_amount, tax, service_fee, total_amount, status, transaction_id, provider_reference, created_at
		FROM payments WHERE booking_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.PayerID, &p.OwnerID, &p.Provider,
			&p.BaseAmount, &p.Tax, &p.ServiceFee, &p.TotalAmount,
			&p.Status, &p.TransactionID, &p.ProviderReference, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Reviews

func (s *PostgresStore) SaveReview(ctx context.Context, r model.Review) error {
	doc, err := encodeReview(r)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, target_id, doc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query, r.ID, r.BookingID, r.ReviewerID, r.TargetID, doc, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateReview(ctx context.Context, r model.Review) error {
	doc, err := encodeReview(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE reviews SET doc = $2 WHERE id = $1`, r.ID, doc)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM reviews WHERE id = $1`, reviewID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("get review: %w", err)
	}
	return decodeReview(doc)
}

func (s *PostgresStore) DeleteReview(ctx context.Context, reviewID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListReviewsByTarget(ctx context.Context, targetID string) ([]model.Review, error) {
	return s.listReviews(ctx, `SELECT doc FROM reviews WHERE target_id = $1 ORDER BY created_at DESC`, targetID)
}

func (s *PostgresStore) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]model.Review, error) {
	return s.listReviews(ctx, `SELECT doc FROM reviews WHERE reviewer_id = $1 ORDER BY created_at DESC`, reviewerID)
}

func (s *PostgresStore) listReviews(ctx context.Context, query, arg string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r, err := decodeReview(doc)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// Reports

func (s *PostgresStore) SaveReport(ctx context.Context, rep model.ReviewReport) error {
	doc, err := marshalDoc(rep)
	if err != nil {
		return err
	}
	query := `INSERT INTO review_reports (id, review_id, doc, created_at) VALUES ($1, $2, $3, $4)`
	_, err = s.db.ExecContext(ctx, query, rep.ID, rep.ReviewID, doc, rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reportID string) (model.ReviewReport, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM review_reports WHERE id = $1`, reportID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReviewReport{}, ErrNotFound
	}
	if err != nil {
		return model.ReviewReport{}, fmt.Errorf("get report: %w", err)
	}
	var rep model.ReviewReport
	if err := json.Unmarshal(doc, &rep); err != nil {
		return model.ReviewReport{}, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}

func (s *PostgresStore) UpdateReport(ctx context.Context, rep model.ReviewReport) error {
	doc, err := marshalDoc(rep)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE review_reports SET doc = $2 WHERE id = $1`, rep.ID, doc)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func marshalDoc(v any) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// reviewDoc carries the helpful-voter set, which the API-facing Review
// deliberately leaves out of its JSON form.
type reviewDoc struct {
	model.Review
	HelpfulBy []string `json:"helpful_by,omitempty"`
}

func encodeReview(r model.Review) ([]byte, error) {
	return marshalDoc(reviewDoc{Review: r, HelpfulBy: r.HelpfulBy})
}

func decodeReview(doc []byte) (model.Review, error) {
	var d reviewDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return model.Review{}, fmt.Errorf("decode review: %w", err)
	}
	r := d.Review
	r.HelpfulBy = d.HelpfulBy
	return r, nil
}
