package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultUploadWorkers = 4
	maxFileNameLength    = 120
)

// UploadFile файл, который нужно положить в объектное хранилище.
// Key пустой для нового файла. При повторе неудачной загрузки передается ключ из PartialUploadError.
type UploadFile struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadService загружает файлы печати и привязывает их к заказу.
type UploadService struct {
	store   ObjectStore
	orders  FileAttacher
	workers int
	newKey  func() string
	l       *logrus.Entry
}

func NewUploadService(store ObjectStore, orders FileAttacher, l *logrus.Logger) *UploadService {
	return &UploadService{
		store:   store,
		orders:  orders,
		workers: defaultUploadWorkers,
		newKey:  uuid.NewString,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "upload",
		}),
	}
}

// SetWorkers устанавливает кол-во параллельных загрузок.
func (u *UploadService) SetWorkers(workers int) *UploadService {
	if workers > 0 {
		u.workers = workers
	}
	return u
}

// UploadOrderFiles загружает файлы уже созданного заказа.
//
// Алгоритм работы:
//  1. Проверяет, что заказ существует. Файлы без заказа не загружаются.
//  2. Параллельно (не больше SetWorkers загрузок) кладет файлы по пути orders/{orderID}/{key}_{fileName}.
//     Файлы с одинаковым именем получают разные ключи. Повтор с тем же ключом пишет в тот же объект.
//  3. Привязывает к заказу успешно загруженные файлы через AttachFiles.
//
// Если часть файлов не загрузилась, возвращает обновленный заказ и *domain.PartialUploadError со списком
// неудачных файлов. Повторять нужно только их.
func (u *UploadService) UploadOrderFiles(
	ctx context.Context,
	orderID string,
	files []UploadFile,
) (*domain.Order, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("uploading order files: %w", domain.NewValidationError("files", "is required"))
	}
	keys, err := u.objectKeys(files)
	if err != nil {
		return nil, fmt.Errorf("uploading order files: %w", err)
	}
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("uploading order files: %w", err)
	}

	descriptors, failed := u.putAll(ctx, files, keys, func(f UploadFile, key string) string {
		return path.Join("orders", order.ID, key+"_"+sanitizeFileName(f.FileName))
	})

	if len(descriptors) > 0 {
		updated, attachErr := u.orders.AttachFiles(ctx, order.ID, descriptors)
		if attachErr != nil {
			return nil, fmt.Errorf("uploading order files: %w", attachErr)
		}
		order = updated
	}

	if len(failed) > 0 {
		return order, &domain.PartialUploadError{Failed: failed}
	}
	return order, nil
}

// UploadDraftFiles загружает файлы до создания заказа в uploads/{userID}/{key}_{fileName}.
// Возвращает описания загруженных файлов и *domain.PartialUploadError, если загрузились не все.
func (u *UploadService) UploadDraftFiles(
	ctx context.Context,
	userID string,
	files []UploadFile,
) ([]domain.FileDescriptor, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("uploading draft files: %w", domain.NewValidationError("files", "is required"))
	}
	keys, err := u.objectKeys(files)
	if err != nil {
		return nil, fmt.Errorf("uploading draft files: %w", err)
	}
	descriptors, failed := u.putAll(ctx, files, keys, func(f UploadFile, key string) string {
		return path.Join("uploads", userID, key+"_"+sanitizeFileName(f.FileName))
	})
	if len(failed) > 0 {
		return descriptors, &domain.PartialUploadError{Failed: failed}
	}
	return descriptors, nil
}

// objectKeys ключи объектов для files. Пустой ключ генерируется, переданный должен быть UUID.
// Один ключ дважды в одном запросе недопустим.
func (u *UploadService) objectKeys(files []UploadFile) ([]string, error) {
	keys := make([]string, len(files))
	seen := make(map[string]struct{}, len(files))
	for i, f := range files {
		key := f.Key
		if key == "" {
			key = u.newKey()
		} else {
			parsed, err := uuid.Parse(key)
			if err != nil {
				return nil, domain.NewValidationError(fmt.Sprintf("keys[%d]", i), "must be a UUID")
			}
			key = parsed.String()
		}
		if _, ok := seen[key]; ok {
			return nil, domain.NewValidationError(fmt.Sprintf("keys[%d]", i), "is duplicated")
		}
		seen[key] = struct{}{}
		keys[i] = key
	}
	return keys, nil
}

// putAll загружает файлы параллельно. Ошибка одного файла не останавливает остальные.
// Порядок успешных описаний и неудачных файлов совпадает с порядком files.
func (u *UploadService) putAll(
	ctx context.Context,
	files []UploadFile,
	keys []string,
	objectPath func(f UploadFile, key string) string,
) ([]domain.FileDescriptor, []domain.FailedUpload) {
	results := make([]*domain.FileDescriptor, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(u.workers)
	for i, f := range files {
		g.Go(func() error {
			p := objectPath(f, keys[i])
			url, err := u.put(ctx, p, f)
			if err != nil {
				u.l.WithError(err).WithField("path", p).Warn("upload failed")
				errs[i] = err
				return nil
			}
			results[i] = &domain.FileDescriptor{
				URL:      url,
				Path:     p,
				FileName: f.FileName,
				Size:     f.Size,
				Type:     f.ContentType,
				Key:      keys[i],
			}
			return nil
		})
	}
	_ = g.Wait()

	descriptors := make([]domain.FileDescriptor, 0, len(files))
	var failed []domain.FailedUpload
	for i, d := range results {
		if d != nil {
			descriptors = append(descriptors, *d)
			continue
		}
		failed = append(failed, domain.FailedUpload{FileName: files[i].FileName, Key: keys[i], Err: errs[i]})
	}
	return descriptors, failed
}

//nolint:nonamedreturns
func (u *UploadService) put(ctx context.Context, objectPath string, f UploadFile) (url string, err error) {
	if f.Open == nil {
		return "", errors.New("file has no content")
	}
	body, openErr := f.Open()
	if openErr != nil {
		return "", fmt.Errorf("open %s: %w", f.FileName, openErr)
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	url, err = u.store.Put(ctx, objectPath, body, f.Size, f.ContentType)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", objectPath, err)
	}
	return url, nil
}

// sanitizeFileName оставляет от имени файла безопасную для ключа объекта часть.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	res := strings.TrimLeft(b.String(), ".")
	if res == "" {
		res = "file"
	}
	if runes := []rune(res); len(runes) > maxFileNameLength {
		res = string(runes[len(runes)-maxFileNameLength:])
	}
	return res
}
