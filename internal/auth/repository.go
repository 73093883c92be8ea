package auth

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	admin.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (id, name, email, password_hash, phone)
		VALUES ($1, $2, $3, $4, $5)
	`, admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.Phone)
	return err
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.get(ctx, `
		SELECT id, name, email, password_hash, phone
		FROM admins
		WHERE email = $1
	`, email)
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	return r.get(ctx, `
		SELECT id, name, email, password_hash, phone
		FROM admins
		WHERE id = $1
	`, id)
}

func (r *AdminRepository) get(ctx context.Context, query, arg string) (*domain.Admin, error) {
	admin := &domain.Admin{}
	var phone sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	admin.Phone = phone.String

	return admin, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, password_hash, phone
		FROM admins
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	admins := []domain.Admin{}
	for rows.Next() {
		var admin domain.Admin
		var phone sql.NullString
		if err := rows.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &phone); err != nil {
			return nil, err
		}
		admin.Phone = phone.String
		admins = append(admins, admin)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return admins, nil
}

func (r *AdminRepository) Update(ctx context.Context, admin *domain.Admin) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins
		SET name = $2, email = $3, password_hash = $4, phone = $5
		WHERE id = $1
	`, admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.Phone)
	return err
}

func (r *AdminRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM admins
		WHERE email = $1
	`, email)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// DeleteAll removes every admin account. Used by the reset command of the
// admin CLI.
func (r *AdminRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admins`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
