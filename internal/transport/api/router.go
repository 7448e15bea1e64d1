package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/printahead/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	DefaultUploadTimeout  = 2 * time.Minute
	DefaultSuggestTimeout = 20 * time.Second
	DefaultSSEHeartbeat   = 25 * time.Second
)

const (
	RouteGroup = "/api"

	RegisterRoute = "/auth/register"
	LoginRoute    = "/auth/login"
	MeRoute       = "/auth/me"

	OrdersRoute     = "/orders"
	OrderRoute      = "/orders/:id"
	OrderFilesRoute = "/orders/:id/files"
	UploadsRoute    = "/uploads"

	BalanceRoute      = "/wallet/balance"
	CreditsRoute      = "/wallet/credits"
	TransactionsRoute = "/wallet/transactions"

	CartRoute       = "/cart"
	CartItemsRoute  = "/cart/items"
	CartItemRoute   = "/cart/items/:itemId"
	CheckoutRoute   = "/cart/checkout"
	CartStreamRoute = "/cart/stream"

	SuggestionsRoute = "/suggestions"

	AdminOrdersRoute      = "/admin/orders"
	AdminOrderStatusRoute = "/admin/orders/:id/status"
	AdminStreamRoute      = "/admin/orders/stream"
	AdminStatsRoute       = "/admin/stats"

	MetricsRoute = "/metrics"
	FilesRoute   = "/files"
)

// MetricsRecorder метрики http запросов и страница /metrics.
type MetricsRecorder interface {
	Middleware() gin.HandlerFunc
	Handler() http.Handler
}

type RouterArgs struct {
	Logger          *logrus.Logger
	UserService     UserServicer
	OrderService    OrderServicer
	WalletService   WalletServicer
	UploadService   UploadServicer
	CheckoutService CheckoutServicer
	Advisor         Advisor
	Carts           CartManager
	OrderStream     OrderStreamer
	Metrics         MetricsRecorder
	JWTSecretKey    []byte
	// FilesDir каталог локального хранилища, раздается по FilesRoute. Пусто, если файлы лежат в s3.
	FilesDir string
	// MaxMultipartMemory часть multipart формы, которая держится в памяти. Остальное во временных файлах.
	MaxMultipartMemory int64
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	if args.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = args.MaxMultipartMemory
	}
	r.Use(gin.Recovery())
	if args.Metrics != nil {
		r.Use(args.Metrics.Middleware())
		r.GET(MetricsRoute, gin.WrapH(args.Metrics.Handler()))
	}
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	if args.FilesDir != "" {
		r.Static(FilesRoute, args.FilesDir)
	}

	authRequired := middlewares.AuthRequired(args.JWTSecretKey)
	optionalAuth := middlewares.OptionalAuth(args.JWTSecretKey)

	authHandler := NewAuthHandler(args.UserService)
	ordersHandler := NewOrdersHandler(args.OrderService, args.UploadService)
	uploadsHandler := NewUploadsHandler(args.UploadService)
	walletHandler := NewWalletHandler(args.WalletService)
	cartHandler := NewCartHandler(args.Carts, args.CheckoutService)
	suggestionsHandler := NewSuggestionsHandler(args.Advisor)
	adminHandler := NewAdminHandler(args.OrderService, args.OrderStream)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, authHandler.Register)
	api.POST(LoginRoute, authHandler.Login)
	api.POST(SuggestionsRoute, suggestionsHandler.Create)

	// гостевое оформление: токен необязателен.
	api.POST(OrdersRoute, optionalAuth, ordersHandler.Create)
	api.GET(OrderRoute, optionalAuth, ordersHandler.Show)
	api.POST(OrderFilesRoute, optionalAuth, ordersHandler.UploadFiles)

	user := api.Group("", authRequired)
	user.GET(MeRoute, authHandler.Me)
	user.GET(OrdersRoute, ordersHandler.Index)
	user.POST(UploadsRoute, uploadsHandler.Create)

	user.GET(BalanceRoute, walletHandler.Balance)
	user.POST(CreditsRoute, walletHandler.AddCredits)
	user.GET(TransactionsRoute, walletHandler.Transactions)

	user.GET(CartRoute, cartHandler.Show)
	user.DELETE(CartRoute, cartHandler.Clear)
	user.POST(CartItemsRoute, cartHandler.AddItem)
	user.DELETE(CartItemRoute, cartHandler.RemoveItem)
	user.POST(CheckoutRoute, cartHandler.Checkout)
	user.GET(CartStreamRoute, cartHandler.Stream)

	admin := user.Group("", middlewares.AdminRequired())
	admin.GET(AdminOrdersRoute, adminHandler.Index)
	admin.GET(AdminStreamRoute, adminHandler.Stream)
	admin.PATCH(AdminOrderStatusRoute, adminHandler.UpdateStatus)
	admin.GET(AdminStatsRoute, adminHandler.Stats)
	return r, nil
}
