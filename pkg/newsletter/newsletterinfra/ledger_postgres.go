package newsletterinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const ledgerSchema = `
	CREATE TABLE IF NOT EXISTS newsletter_deliveries (
		group_uuid    TEXT        NOT NULL,
		recipient_id  TEXT        NOT NULL,
		tenant_id     TEXT        NOT NULL,
		newsletter_id TEXT        NOT NULL,
		message_id    TEXT        NOT NULL DEFAULT '',
		provider      TEXT        NOT NULL DEFAULT '',
		delivered_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (group_uuid, recipient_id)
	)`

// PostgresLedger stores accepted deliveries keyed by (group_uuid, recipient_id).
type PostgresLedger struct {
	db *sqlx.DB
}

func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

type deliveryRow struct {
	GroupUUID    string    `db:"group_uuid"`
	RecipientID  string    `db:"recipient_id"`
	TenantID     string    `db:"tenant_id"`
	NewsletterID string    `db:"newsletter_id"`
	MessageID    string    `db:"message_id"`
	Provider     string    `db:"provider"`
	DeliveredAt  time.Time `db:"delivered_at"`
}

// EnsureSchema creates the ledger table when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, ledgerSchema); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).WithDetail("op", "schema")
	}
	return nil
}

func (l *PostgresLedger) Delivered(
	ctx context.Context,
	group kernel.GroupID,
	ids []kernel.RecipientID,
) (map[kernel.RecipientID]newsletter.Delivery, error) {
	out := make(map[kernel.RecipientID]newsletter.Delivery, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `
		SELECT group_uuid, recipient_id, tenant_id, newsletter_id, message_id, provider, delivered_at
		FROM newsletter_deliveries
		WHERE group_uuid = $1 AND recipient_id = ANY($2)`

	var rows []deliveryRow
	if err := l.db.SelectContext(ctx, &rows, query, group.String(), pq.Array(keys)); err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).
			WithDetail("op", "select").
			WithDetail("groupUUID", group.String())
	}
	for _, r := range rows {
		d := r.toDomain()
		out[d.RecipientID] = d
	}
	return out, nil
}

// Record inserts deliveries in one transaction. Rows already present are
// kept as they are.
func (l *PostgresLedger) Record(ctx context.Context, deliveries []newsletter.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	query := `
		INSERT INTO newsletter_deliveries (
			group_uuid, recipient_id, tenant_id, newsletter_id, message_id, provider, delivered_at
		) VALUES (
			:group_uuid, :recipient_id, :tenant_id, :newsletter_id, :message_id, :provider, :delivered_at
		)
		ON CONFLICT (group_uuid, recipient_id) DO NOTHING`

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).WithDetail("op", "begin")
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range deliveries {
		if _, err := tx.NamedExecContext(ctx, query, toDeliveryRow(d)); err != nil {
			return newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).
				WithDetail("op", "insert").
				WithDetail("recipientId", d.RecipientID.String())
		}
	}
	if err := tx.Commit(); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).WithDetail("op", "commit")
	}
	return nil
}

func toDeliveryRow(d newsletter.Delivery) deliveryRow {
	return deliveryRow{
		GroupUUID:    d.GroupUUID.String(),
		RecipientID:  d.RecipientID.String(),
		TenantID:     d.TenantID.String(),
		NewsletterID: d.NewsletterID.String(),
		MessageID:    d.MessageID,
		Provider:     d.Provider,
		DeliveredAt:  d.DeliveredAt,
	}
}

func (r deliveryRow) toDomain() newsletter.Delivery {
	return newsletter.Delivery{
		GroupUUID:    kernel.NewGroupID(r.GroupUUID),
		RecipientID:  kernel.NewRecipientID(r.RecipientID),
		TenantID:     kernel.NewTenantID(r.TenantID),
		NewsletterID: kernel.NewNewsletterID(r.NewsletterID),
		MessageID:    r.MessageID,
		Provider:     r.Provider,
		DeliveredAt:  r.DeliveredAt,
	}
}
