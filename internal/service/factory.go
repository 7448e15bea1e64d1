package service

import (
	"fmt"

	"github.com/fsdevblog/printahead/internal/service/psswd"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	UserService     *UserService
	WalletService   *WalletService
	OrderService    *OrderService
	UploadService   *UploadService
	CheckoutService *CheckoutService
}

type FactoryArgs struct {
	JWTSecret     []byte
	BcryptCost    int
	AdminEmails   []string
	UploadWorkers int
	Publisher     EventPublisher
	Metrics       WalletMetrics
	ObjectStore   ObjectStore
	Carts         CartProvider
}

func Factory(unitOfWork uow.UOW, args FactoryArgs, l *logrus.Logger) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, args.JWTSecret, psswd.New(args.BcryptCost))
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}
	userService.SetAdminEmails(args.AdminEmails)

	walletService, walletServiceErr := NewWalletService(unitOfWork)
	if walletServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", walletServiceErr.Error())
	}
	if args.Metrics != nil {
		walletService.SetMetrics(args.Metrics)
	}

	orderService, orderServiceErr := NewOrderService(unitOfWork, walletService, args.Publisher)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	uploadService := NewUploadService(args.ObjectStore, orderService, l).SetWorkers(args.UploadWorkers)

	return &AppServices{
		UserService:     userService,
		WalletService:   walletService,
		OrderService:    orderService,
		UploadService:   uploadService,
		CheckoutService: NewCheckoutService(args.Carts, orderService),
	}, nil
}
