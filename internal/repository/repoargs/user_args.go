package repoargs

import "github.com/fsdevblog/printahead/internal/domain"

type CreateUser struct {
	Email        string
	DisplayName  string
	PasswordHash string
	Role         domain.RoleType
}
