package repoargs

import "github.com/fsdevblog/printahead/internal/domain"

type UpdateOrderFiles struct {
	OrderID         string
	UploadedFiles   []domain.FileDescriptor
	UploadsComplete bool
}
