package newsletterinfra

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresLedger(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresLedger_Delivered(t *testing.T) {
	ledger, mock := newLedger(t)
	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"group_uuid", "recipient_id", "tenant_id", "newsletter_id", "message_id", "provider", "delivered_at",
	}).AddRow("g-1", "r-2", "tenant-1", "nl-1", "msg-2", "resend", at)

	mock.ExpectQuery(regexp.QuoteMeta("FROM newsletter_deliveries")).
		WithArgs("g-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := ledger.Delivered(context.Background(), "g-1", []kernel.RecipientID{"r-1", "r-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newsletter.Delivery{
		GroupUUID:    "g-1",
		RecipientID:  "r-2",
		TenantID:     "tenant-1",
		NewsletterID: "nl-1",
		MessageID:    "msg-2",
		Provider:     "resend",
		DeliveredAt:  at,
	}, got["r-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_DeliveredEmptyAndError(t *testing.T) {
	ledger, mock := newLedger(t)

	got, err := ledger.Delivered(context.Background(), "g-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(regexp.QuoteMeta("FROM newsletter_deliveries")).WillReturnError(errors.New("conn reset"))
	_, err = ledger.Delivered(context.Background(), "g-1", []kernel.RecipientID{"r-1"})
	require.Error(t, err)
	assert.Equal(t, newsletter.ErrLedger.Code, errx.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Record(t *testing.T) {
	ledger, mock := newLedger(t)
	at := time.Now().UTC()
	deliveries := []newsletter.Delivery{
		{GroupUUID: "g-1", RecipientID: "r-1", TenantID: "t-1", NewsletterID: "nl-1", MessageID: "m-1", Provider: "ses", DeliveredAt: at},
		{GroupUUID: "g-1", RecipientID: "r-2", TenantID: "t-1", NewsletterID: "nl-1", MessageID: "m-2", Provider: "ses", DeliveredAt: at},
	}

	insert := regexp.QuoteMeta("ON CONFLICT (group_uuid, recipient_id) DO NOTHING")
	mock.ExpectBegin()
	mock.ExpectExec(insert).
		WithArgs("g-1", "r-1", "t-1", "nl-1", "m-1", "ses", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("g-1", "r-2", "t-1", "nl-1", "m-2", "ses", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, ledger.Record(context.Background(), deliveries))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_RecordRollsBackOnError(t *testing.T) {
	ledger, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO newsletter_deliveries").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := ledger.Record(context.Background(), []newsletter.Delivery{{GroupUUID: "g-1", RecipientID: "r-1"}})
	require.Error(t, err)
	assert.True(t, errx.IsType(err, errx.TypeExternal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_EnsureSchema(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS newsletter_deliveries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ledger.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
