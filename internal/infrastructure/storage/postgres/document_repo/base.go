// Package document_repo provides PostgreSQL implementations for document repositories.
// A document is a header row plus line rows, both carrying tenant_id.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/id"
	"distripos/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides the header/lines plumbing shared by documents.
type BaseDocumentRepo[H any, L any] struct {
	txManager  *postgres.TxManager
	tableName  string
	linesTable string
	entityName string
	selectCols []string
	lineCols   []string
}

// NewBaseDocumentRepo creates a new base document repository. Line columns
// listed in readOnly are selected but never inserted.
func NewBaseDocumentRepo[H any, L any](
	txManager *postgres.TxManager,
	tableName, linesTable, entityName string,
	readOnly ...string,
) *BaseDocumentRepo[H, L] {
	lineCols := make([]string, 0)
	for _, col := range postgres.ExtractDBColumns[L]() {
		if !contains(readOnly, col) {
			lineCols = append(lineCols, col)
		}
	}
	return &BaseDocumentRepo[H, L]{
		txManager:  txManager,
		tableName:  tableName,
		linesTable: linesTable,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[H](),
		lineCols:   lineCols,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[H, L]) Builder() squirrel.StatementBuilderType {
	return postgres.Builder()
}

func (r *BaseDocumentRepo[H, L]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// baseSelect selects headers of one tenant.
func (r *BaseDocumentRepo[H, L]) baseSelect(tenantID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

// insertHeader writes the header using its "db" tags.
func (r *BaseDocumentRepo[H, L]) insertHeader(ctx context.Context, header *H) error {
	data := postgres.StructToMap(header)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}
	q := r.Builder().Insert(r.tableName).SetMap(data)
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// insertLines uses COPY inside a transaction and a multi-row INSERT otherwise.
func (r *BaseDocumentRepo[H, L]) insertLines(ctx context.Context, lines []L) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for i := range lines {
		data := postgres.StructToMap(&lines[i])
		row := make([]any, len(r.lineCols))
		for j, col := range r.lineCols {
			row[j] = data[col]
		}
		rows = append(rows, row)
	}

	if r.txManager.GetTx(ctx) != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, r.linesTable, r.lineCols, rows); err != nil {
			return fmt.Errorf("copy %s: %w", r.linesTable, err)
		}
		return nil
	}

	q := r.Builder().Insert(r.linesTable).Columns(r.lineCols...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("insert %s: %w", r.linesTable, err)
	}
	return nil
}

// getHeader loads one header; forUpdate locks the row for the transaction.
func (r *BaseDocumentRepo[H, L]) getHeader(ctx context.Context, tenantID id.ID, where squirrel.Sqlizer, key string, forUpdate bool) (*H, error) {
	var header H
	q := r.baseSelect(tenantID).Where(where).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	if err := postgres.Get(ctx, r.querier(ctx), &header, q, r.entityName, key); err != nil {
		return nil, err
	}
	return &header, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

const productTable = "productos"
