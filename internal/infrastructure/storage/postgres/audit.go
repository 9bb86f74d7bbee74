package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "magasin/internal/core/context"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/domain/audit"
)

// CompressionAlgo specifies how a stored change set is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the change set size above which it is stored zstd-compressed.
const DefaultCompressThreshold = 10 * 1024

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	TenantID          string          `db:"tenant_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	UserID            string          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	TraceID           string          `db:"trace_id"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditRecorder implements audit.Recorder on sys_audit.
type AuditRecorder struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates a recorder. threshold <= 0 selects the default.
func NewAuditRecorder(txManager *TxManager, threshold int) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &AuditRecorder{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Record inserts ev for the tenant and user in ctx.
func (r *AuditRecorder) Record(ctx context.Context, ev audit.Event) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	changes, err := json.Marshal(ev.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	entry := r.encode(AuditEntry{
		ID:         id.New(),
		TenantID:   tenantID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Action:     ev.Action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    changes,
		TraceID:    appctx.GetTraceID(ctx),
		CreatedAt:  time.Now().UTC(),
	})

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, tenant_id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, trace_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.TenantID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.TraceID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the newest entries of one entity, decompressed.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, tenant_id, entity_type, entity_id, action, user_id,
		       changes, changes_compressed, compression_algo, trace_id, created_at
		FROM sys_audit
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4`, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.TraceID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e, err = r.decode(e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// encode moves large change sets into the compressed column.
func (r *AuditRecorder) encode(e AuditEntry) AuditEntry {
	e.CompressionAlgo = CompressionNone
	if len(e.Changes) > r.compressThreshold {
		e.ChangesCompressed = r.encoder.EncodeAll(e.Changes, nil)
		e.Changes = nil
		e.CompressionAlgo = CompressionZstd
	}
	return e
}

func (r *AuditRecorder) decode(e AuditEntry) (AuditEntry, error) {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return e, nil
	}
	decompressed, err := r.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return e, fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = decompressed
	e.ChangesCompressed = nil
	return e, nil
}
