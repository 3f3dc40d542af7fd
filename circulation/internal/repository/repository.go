package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type Repository interface {
	// RunInTx runs fn inside one database transaction. fn must use tx, not the receiver.
	// Called on a transactional repository it joins the running transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	GetMember(ctx context.Context, id string) (model.Member, error)
	LockMember(ctx context.Context, id string) (model.Member, error)
	GetCopy(ctx context.Context, id string) (model.Copy, error)
	LockCopy(ctx context.Context, id string) (model.Copy, error)
	// SetCopyStatus moves a copy from one status to another and fails with ErrConflict
	// when the copy is no longer in the from status.
	SetCopyStatus(ctx context.Context, id string, from, to model.CopyStatus) error
	LockItem(ctx context.Context, id string) (model.Item, error)
	CountCopies(ctx context.Context, itemID string, status model.CopyStatus) (int, error)

	GetPolicy(ctx context.Context, tier model.Tier) (model.CheckoutPolicy, error)
	ListPolicies(ctx context.Context) ([]model.CheckoutPolicy, error)
	UpsertPolicy(ctx context.Context, p model.CheckoutPolicy) error

	CreateLoan(ctx context.Context, loan model.Loan) error
	GetLoan(ctx context.Context, id string) (model.Loan, error)
	LockLoan(ctx context.Context, id string) (model.Loan, error)
	UpdateLoan(ctx context.Context, loan model.Loan) error
	CountOpenLoans(ctx context.Context, memberID string) (int, error)
	ListLoans(ctx context.Context, memberID string, statuses []model.LoanStatus, limit int) ([]model.Loan, error)
	// ListOverdueCandidates returns active loans due strictly before the day of asOf.
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]model.Loan, error)
	ListLoansDueOn(ctx context.Context, day time.Time) ([]model.Loan, error)

	CreateRenewal(ctx context.Context, rec model.RenewalRecord) error
	ListRenewals(ctx context.Context, loanID string) ([]model.RenewalRecord, error)

	CreateFine(ctx context.Context, fine model.Fine) error
	GetFine(ctx context.Context, id string) (model.Fine, error)
	LockFine(ctx context.Context, id string) (model.Fine, error)
	UpdateFine(ctx context.Context, fine model.Fine) error
	// ListLoanOverdueFines locks and returns every overdue fine of the loan, whatever its status.
	ListLoanOverdueFines(ctx context.Context, loanID string) ([]model.Fine, error)
	ListFines(ctx context.Context, memberID string) ([]model.Fine, error)

	CreateReservation(ctx context.Context, res model.Reservation) error
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	UpdateReservation(ctx context.Context, res model.Reservation) error
	ListActiveReservations(ctx context.Context, itemID string) ([]model.Reservation, error)
	HasActiveReservation(ctx context.Context, itemID, memberID string) (bool, error)
	ListMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error)
	ListExpiredReservations(ctx context.Context, asOf time.Time) ([]model.Reservation, error)
}

type repository struct {
	db   sqlx.ExtContext
	root *sqlx.DB
	log  *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:   db,
		root: db,
		log:  log.Named("repo"),
	}, nil
}

const (
	membersTableName      = `members`
	itemsTableName        = `items`
	copiesTableName       = `copies`
	policiesTableName     = `checkout_policies`
	loansTableName        = `loans`
	renewalsTableName     = `renewal_history`
	finesTableName        = `fines`
	reservationsTableName = `reservations`

	forUpdate = "FOR UPDATE"
)

var (
	memberColumns      = []string{"id", "username", "tier", "status", "max_books_override"}
	copyColumns        = []string{"id", "item_id", "status"}
	policyColumns      = []string{"tier", "max_books", "loan_period_days", "max_renewals", "fine_per_day", "max_fine_amount"}
	loanColumns        = []string{"id", "member_id", "copy_id", "checkout_date", "due_date", "return_date", "renewal_count", "max_renewals", "status", "checked_out_by", "notes"}
	renewalColumns     = []string{"id", "loan_id", "old_due_date", "new_due_date", "renewed_by", "renewed_on"}
	fineColumns        = []string{"id", "member_id", "loan_id", "amount", "reason", "description", "status", "issued_date", "paid_date", "payment_method", "transaction_id"}
	reservationColumns = []string{"id", "item_id", "member_id", "reservation_date", "expiry_date", "status", "position_in_queue", "notified"}

	openLoanStatuses = []model.LoanStatus{model.LoanActive, model.LoanOverdue}
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	if r.root == nil {
		return fn(ctx, r)
	}
	tx, err := r.root.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "repo.BeginTx")
	}
	txRepo := &repository{db: tx, log: r.log}
	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("rollback", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("repo.Commit", err)
	}
	return nil
}

// mapError turns lock and constraint failures into ErrConflict so callers can retry or report them.
func mapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation,
			pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable:
			return errors.Wrapf(errs.ErrConflict, "%s: %s %s", op, pgErr.Code, pgErr.ConstraintName)
		}
	}
	return errors.Wrap(err, op)
}

func (r *repository) get(ctx context.Context, op string, dest any, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if err := sqlx.GetContext(ctx, r.db, dest, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		}
		return mapError(op, err)
	}
	return nil
}

func (r *repository) list(ctx context.Context, op string, dest any, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if err := sqlx.SelectContext(ctx, r.db, dest, query, args...); err != nil {
		r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return mapError(op, err)
	}
	return nil
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (r *repository) exec(ctx context.Context, op string, b sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(op, zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return 0, mapError(op, err)
	}
	return res.RowsAffected()
}

func (r *repository) execOne(ctx context.Context, op string, b sqlizer) error {
	n, err := r.exec(ctx, op, b)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) count(ctx context.Context, op string, b sq.SelectBuilder) (int, error) {
	var n int
	if err := r.get(ctx, op, &n, b); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) GetMember(ctx context.Context, id string) (model.Member, error) {
	var m model.Member
	err := r.get(ctx, "repo.GetMember", &m,
		qb.Select(memberColumns...).From(membersTableName).Where(sq.Eq{"id": id}))
	return m, err
}

func (r *repository) LockMember(ctx context.Context, id string) (model.Member, error) {
	var m model.Member
	err := r.get(ctx, "repo.LockMember", &m,
		qb.Select(memberColumns...).From(membersTableName).Where(sq.Eq{"id": id}).Suffix(forUpdate))
	return m, err
}

func (r *repository) GetCopy(ctx context.Context, id string) (model.Copy, error) {
	var c model.Copy
	err := r.get(ctx, "repo.GetCopy", &c,
		qb.Select(copyColumns...).From(copiesTableName).Where(sq.Eq{"id": id}))
	return c, err
}

func (r *repository) LockCopy(ctx context.Context, id string) (model.Copy, error) {
	var c model.Copy
	err := r.get(ctx, "repo.LockCopy", &c,
		qb.Select(copyColumns...).From(copiesTableName).Where(sq.Eq{"id": id}).Suffix(forUpdate))
	return c, err
}

func (r *repository) SetCopyStatus(ctx context.Context, id string, from, to model.CopyStatus) error {
	n, err := r.exec(ctx, "repo.SetCopyStatus",
		qb.Update(copiesTableName).
			Set("status", to).
			Where(sq.Eq{"id": id, "status": from}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(errs.ErrConflict, "copy %s is not %s", id, from)
	}
	return nil
}

func (r *repository) LockItem(ctx context.Context, id string) (model.Item, error) {
	var it model.Item
	err := r.get(ctx, "repo.LockItem", &it,
		qb.Select("id", "title").From(itemsTableName).Where(sq.Eq{"id": id}).Suffix(forUpdate))
	return it, err
}

func (r *repository) CountCopies(ctx context.Context, itemID string, status model.CopyStatus) (int, error) {
	return r.count(ctx, "repo.CountCopies",
		qb.Select("count(*)").From(copiesTableName).Where(sq.Eq{"item_id": itemID, "status": status}))
}

func (r *repository) GetPolicy(ctx context.Context, tier model.Tier) (model.CheckoutPolicy, error) {
	var p model.CheckoutPolicy
	err := r.get(ctx, "repo.GetPolicy", &p,
		qb.Select(policyColumns...).From(policiesTableName).Where(sq.Eq{"tier": tier}))
	return p, err
}

func (r *repository) ListPolicies(ctx context.Context) ([]model.CheckoutPolicy, error) {
	policies := make([]model.CheckoutPolicy, 0)
	err := r.list(ctx, "repo.ListPolicies", &policies,
		qb.Select(policyColumns...).From(policiesTableName).OrderBy("tier"))
	return policies, err
}

func (r *repository) UpsertPolicy(ctx context.Context, p model.CheckoutPolicy) error {
	_, err := r.exec(ctx, "repo.UpsertPolicy",
		qb.Insert(policiesTableName).
			Columns(policyColumns...).
			Values(p.Tier, p.MaxBooks, p.LoanPeriodDays, p.MaxRenewals, p.FinePerDay, p.MaxFineAmount).
			Suffix(`ON CONFLICT (tier) DO UPDATE SET
    max_books = EXCLUDED.max_books,
    loan_period_days = EXCLUDED.loan_period_days,
    max_renewals = EXCLUDED.max_renewals,
    fine_per_day = EXCLUDED.fine_per_day,
    max_fine_amount = EXCLUDED.max_fine_amount`))
	return err
}

func (r *repository) CreateLoan(ctx context.Context, l model.Loan) error {
	_, err := r.exec(ctx, "repo.CreateLoan",
		qb.Insert(loansTableName).
			Columns(loanColumns...).
			Values(l.ID, l.MemberID, l.CopyID, l.CheckoutDate, l.DueDate, l.ReturnDate,
				l.RenewalCount, l.MaxRenewals, l.Status, l.CheckedOutBy, l.Notes))
	return err
}

func (r *repository) GetLoan(ctx context.Context, id string) (model.Loan, error) {
	var l model.Loan
	err := r.get(ctx, "repo.GetLoan", &l,
		qb.Select(loanColumns...).From(loansTableName).Where(sq.Eq{"id": id}))
	return l, err
}

func (r *repository) LockLoan(ctx context.Context, id string) (model.Loan, error) {
	var l model.Loan
	err := r.get(ctx, "repo.LockLoan", &l,
		qb.Select(loanColumns...).From(loansTableName).Where(sq.Eq{"id": id}).Suffix(forUpdate))
	return l, err
}

func (r *repository) UpdateLoan(ctx context.Context, l model.Loan) error {
	return r.execOne(ctx, "repo.UpdateLoan",
		qb.Update(loansTableName).
			Set("due_date", l.DueDate).
			Set("return_date", l.ReturnDate).
			Set("renewal_count", l.RenewalCount).
			Set("status", l.Status).
			Set("notes", l.Notes).
			Where(sq.Eq{"id": l.ID}))
}

func (r *repository) CountOpenLoans(ctx context.Context, memberID string) (int, error) {
	return r.count(ctx, "repo.CountOpenLoans",
		qb.Select("count(*)").From(loansTableName).
			Where(sq.Eq{"member_id": memberID, "status": openLoanStatuses}))
}

func (r *repository) ListLoans(ctx context.Context, memberID string, statuses []model.LoanStatus, limit int) ([]model.Loan, error) {
	q := qb.Select(loanColumns...).From(loansTableName).
		Where(sq.Eq{"member_id": memberID}).
		OrderBy("checkout_date DESC", "id")
	if len(statuses) != 0 {
		q = q.Where(sq.Eq{"status": statuses})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	loans := make([]model.Loan, 0)
	err := r.list(ctx, "repo.ListLoans", &loans, q)
	return loans, err
}

func (r *repository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]model.Loan, error) {
	loans := make([]model.Loan, 0)
	err := r.list(ctx, "repo.ListOverdueCandidates", &loans,
		qb.Select(loanColumns...).From(loansTableName).
			Where(sq.Eq{"status": model.LoanActive}).
			Where(sq.Lt{"due_date": model.Day(asOf)}).
			OrderBy("due_date", "id"))
	return loans, err
}

func (r *repository) ListLoansDueOn(ctx context.Context, day time.Time) ([]model.Loan, error) {
	loans := make([]model.Loan, 0)
	err := r.list(ctx, "repo.ListLoansDueOn", &loans,
		qb.Select(loanColumns...).From(loansTableName).
			Where(sq.Eq{"status": model.LoanActive, "due_date": model.Day(day)}).
			OrderBy("id"))
	return loans, err
}

func (r *repository) CreateRenewal(ctx context.Context, rec model.RenewalRecord) error {
	_, err := r.exec(ctx, "repo.CreateRenewal",
		qb.Insert(renewalsTableName).
			Columns(renewalColumns...).
			Values(rec.ID, rec.LoanID, rec.OldDueDate, rec.NewDueDate, rec.RenewedBy, rec.RenewedOn))
	return err
}

func (r *repository) ListRenewals(ctx context.Context, loanID string) ([]model.RenewalRecord, error) {
	recs := make([]model.RenewalRecord, 0)
	err := r.list(ctx, "repo.ListRenewals", &recs,
		qb.Select(renewalColumns...).From(renewalsTableName).
			Where(sq.Eq{"loan_id": loanID}).
			OrderBy("renewed_on", "id"))
	return recs, err
}

func (r *repository) CreateFine(ctx context.Context, f model.Fine) error {
	_, err := r.exec(ctx, "repo.CreateFine",
		qb.Insert(finesTableName).
			Columns(fineColumns...).
			Values(f.ID, f.MemberID, f.LoanID, f.Amount, f.Reason, f.Description, f.Status,
				f.IssuedDate, f.PaidDate, f.PaymentMethod, f.TransactionID))
	return err
}

func (r *repository) GetFine(ctx context.Context, id string) (model.Fine, error) {
	var f model.Fine
	err := r.get(ctx, "repo.GetFine", &f,
		qb.Select(fineColumns...).From(finesTableName).Where(sq.Eq{"id": id}))
	return f, err
}

func (r *repository) LockFine(ctx context.Context, id string) (model.Fine, error) {
	var f model.Fine
	err := r.get(ctx, "repo.LockFine", &f,
		qb.Select(fineColumns...).From(finesTableName).Where(sq.Eq{"id": id}).Suffix(forUpdate))
	return f, err
}

func (r *repository) UpdateFine(ctx context.Context, f model.Fine) error {
	return r.execOne(ctx, "repo.UpdateFine",
		qb.Update(finesTableName).
			Set("amount", f.Amount).
			Set("description", f.Description).
			Set("status", f.Status).
			Set("paid_date", f.PaidDate).
			Set("payment_method", f.PaymentMethod).
			Set("transaction_id", f.TransactionID).
			Where(sq.Eq{"id": f.ID}))
}

func (r *repository) ListLoanOverdueFines(ctx context.Context, loanID string) ([]model.Fine, error) {
	fines := make([]model.Fine, 0)
	err := r.list(ctx, "repo.ListLoanOverdueFines", &fines,
		qb.Select(fineColumns...).From(finesTableName).
			Where(sq.Eq{"loan_id": loanID, "reason": model.FineOverdue}).
			OrderBy("issued_date", "id").
			Suffix(forUpdate))
	return fines, err
}

func (r *repository) ListFines(ctx context.Context, memberID string) ([]model.Fine, error) {
	fines := make([]model.Fine, 0)
	err := r.list(ctx, "repo.ListFines", &fines,
		qb.Select(fineColumns...).From(finesTableName).
			Where(sq.Eq{"member_id": memberID}).
			OrderBy("issued_date DESC", "id"))
	return fines, err
}

func (r *repository) CreateReservation(ctx context.Context, res model.Reservation) error {
	_, err := r.exec(ctx, "repo.CreateReservation",
		qb.Insert(reservationsTableName).
			Columns(reservationColumns...).
			Values(res.ID, res.ItemID, res.MemberID, res.ReservationDate, res.ExpiryDate,
				res.Status, res.PositionInQueue, res.Notified))
	return err
}

func (r *repository) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	var res model.Reservation
	err := r.get(ctx, "repo.GetReservation", &res,
		qb.Select(reservationColumns...).From(reservationsTableName).Where(sq.Eq{"id": id}))
	return res, err
}

func (r *repository) UpdateReservation(ctx context.Context, res model.Reservation) error {
	return r.execOne(ctx, "repo.UpdateReservation",
		qb.Update(reservationsTableName).
			Set("status", res.Status).
			Set("position_in_queue", res.PositionInQueue).
			Set("notified", res.Notified).
			Set("expiry_date", res.ExpiryDate).
			Where(sq.Eq{"id": res.ID}))
}

func (r *repository) ListActiveReservations(ctx context.Context, itemID string) ([]model.Reservation, error) {
	list := make([]model.Reservation, 0)
	err := r.list(ctx, "repo.ListActiveReservations", &list,
		qb.Select(reservationColumns...).From(reservationsTableName).
			Where(sq.Eq{"item_id": itemID, "status": model.ReservationActive}).
			OrderBy("reservation_date", "id"))
	return list, err
}

func (r *repository) HasActiveReservation(ctx context.Context, itemID, memberID string) (bool, error) {
	n, err := r.count(ctx, "repo.HasActiveReservation",
		qb.Select("count(*)").From(reservationsTableName).
			Where(sq.Eq{"item_id": itemID, "member_id": memberID, "status": model.ReservationActive}))
	return n > 0, err
}

func (r *repository) ListMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error) {
	list := make([]model.Reservation, 0)
	err := r.list(ctx, "repo.ListMemberReservations", &list,
		qb.Select(reservationColumns...).From(reservationsTableName).
			Where(sq.Eq{"member_id": memberID}).
			OrderBy("reservation_date DESC", "id"))
	return list, err
}

func (r *repository) ListExpiredReservations(ctx context.Context, asOf time.Time) ([]model.Reservation, error) {
	list := make([]model.Reservation, 0)
	err := r.list(ctx, "repo.ListExpiredReservations", &list,
		qb.Select(reservationColumns...).From(reservationsTableName).
			Where(sq.Eq{"status": model.ReservationActive}).
			Where(sq.Lt{"expiry_date": model.Day(asOf)}).
			OrderBy("item_id", "reservation_date", "id"))
	return list, err
}
