package pgrepo

import (
	"context"
	"strings"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, created_at, updated_at, email, display_name, role, credits, password_hash`

type UserRepository struct {
	conn uow.DBTX
}

func NewUserRepository(conn uow.DBTX) *UserRepository {
	return &UserRepository{conn: conn}
}

func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	role := args.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	row := u.conn.QueryRow(ctx,
		`INSERT INTO users (id, email, display_name, role, credits, password_hash)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING `+userColumns,
		uuid.NewString(), strings.ToLower(args.Email), args.DisplayName, string(role), args.PasswordHash,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user with email `%s`", args.Email)
	}
	return user, nil
}

func (u *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := u.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by email `%s`", email)
	}
	return user, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by id `%s`", id)
	}
	return user, nil
}

// GetCreditsForUpdate читает баланс и блокирует строку юзера до конца транзакции.
// Вызывать только внутри uow.Do.
func (u *UserRepository) GetCreditsForUpdate(ctx context.Context, id string) (int64, error) {
	var credits int64
	err := u.conn.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&credits)
	if err != nil {
		return 0, convertErr(err, "locking credits of user `%s`", id)
	}
	return credits, nil
}

func (u *UserRepository) SetCredits(ctx context.Context, id string, credits int64) error {
	tag, err := u.conn.Exec(ctx,
		`UPDATE users SET credits = $2, updated_at = NOW() WHERE id = $1`, id, credits)
	if err != nil {
		return convertErr(err, "setting credits of user `%s`", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "setting credits of user `%s`", id)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Email,
		&user.DisplayName,
		&role,
		&user.Credits,
		&user.PasswordHash,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	user.Role = domain.RoleType(role)
	return &user, nil
}
