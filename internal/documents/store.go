package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrDuplicate   = errors.New("document name or link already exists")
	ErrUnknownType = errors.New("unknown document type")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrUnknownType
		}
	}
	return err
}

func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListTypes(ctx context.Context) ([]DocumentType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM document_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []DocumentType{}
	for rows.Next() {
		var t DocumentType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) GetType(ctx context.Context, id int64) (*DocumentType, error) {
	t := &DocumentType{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM document_types WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *Store) CreateType(ctx context.Context, t *DocumentType) error {
	return mapErr(s.db.QueryRowContext(ctx,
		`INSERT INTO document_types (name) VALUES ($1) RETURNING id`, t.Name).Scan(&t.ID))
}

func (s *Store) UpdateType(ctx context.Context, t *DocumentType) error {
	return s.exec(ctx, `UPDATE document_types SET name = $1 WHERE id = $2`, t.Name, t.ID)
}

func (s *Store) DeleteType(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM document_types WHERE id = $1`, id)
}

const documentColumns = `id, name, file_link, published_at, valid_at, published_by, signed_by,
	document_type_id, uploaded_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var (
		d                Document
		published, valid sql.NullTime
		docType          sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.FileLink, &published, &valid, &d.PublishedBy, &d.SignedBy,
		&docType, &d.UploadedAt, &d.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	if published.Valid {
		d.PublishedAt = &published.Time
	}
	if valid.Valid {
		d.ValidAt = &valid.Time
	}
	if docType.Valid {
		d.DocumentTypeID = &docType.Int64
	}
	return &d, nil
}

// List returns documents, optionally restricted to one type.
func (s *Store) List(ctx context.Context, typeID int64) ([]Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if typeID > 0 {
		q += ` WHERE document_type_id = $1`
		args = append(args, typeID)
	}
	q += ` ORDER BY uploaded_at DESC, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (s *Store) Create(ctx context.Context, d *Document) error {
	now := time.Now().UTC()
	const q = `
		INSERT INTO documents (name, file_link, published_at, valid_at, published_by, signed_by,
			document_type_id, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, uploaded_at, updated_at
	`
	return mapErr(s.db.QueryRowContext(ctx, q, d.Name, d.FileLink, d.PublishedAt, d.ValidAt, d.PublishedBy,
		d.SignedBy, d.DocumentTypeID, now).Scan(&d.ID, &d.UploadedAt, &d.UpdatedAt))
}

func (s *Store) Update(ctx context.Context, d *Document) error {
	const q = `
		UPDATE documents SET name = $1, file_link = $2, published_at = $3, valid_at = $4, published_by = $5,
			signed_by = $6, document_type_id = $7, updated_at = $8
		WHERE id = $9
	`
	return s.exec(ctx, q, d.Name, d.FileLink, d.PublishedAt, d.ValidAt, d.PublishedBy, d.SignedBy,
		d.DocumentTypeID, time.Now().UTC(), d.ID)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
}
