package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txDB unwraps a transaction started by TxManager.
func txDB(tx usecase.Transaction) DB {
	return tx.(*Tx).PgxTx()
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// encodeSet stores a denomination set as {"<face value>": count}.
func encodeSet(set domain.DenominationSet) ([]byte, error) {
	out := make(map[string]int64, len(set))
	for _, e := range set.Entries() {
		out[strconv.FormatInt(int64(e.Denomination), 10)] = e.Count
	}
	return json.Marshal(out)
}

func decodeSet(raw []byte) (domain.DenominationSet, error) {
	set := domain.DenominationSet{}
	if len(raw) == 0 {
		return set, nil
	}

	var in map[string]int64
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode denominations: %w", err)
	}
	for k, count := range in {
		v, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode denominations: key %q: %w", k, err)
		}
		if count != 0 {
			set[domain.Denomination(v)] = count
		}
	}
	return set, set.Validate()
}
