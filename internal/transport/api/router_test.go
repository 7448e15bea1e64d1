package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/cart"
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/events"
	"github.com/fsdevblog/printahead/internal/service/tokens"
	"github.com/fsdevblog/printahead/internal/transport/api/mocks"
	"github.com/fsdevblog/printahead/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testJWTSecret = []byte("super secret key")

// testRouter роутер со всеми моками сервисов. Корзины и поток заказов настоящие, в памяти.
type testRouter struct {
	router      *gin.Engine
	users       *mocks.MockUserServicer
	orders      *mocks.MockOrderServicer
	wallet      *mocks.MockWalletServicer
	uploads     *mocks.MockUploadServicer
	checkout    *mocks.MockCheckoutServicer
	advisor     *mocks.MockAdvisor
	carts       *cart.Manager
	orderStream *events.OrderStream
}

func newTestRouter(t *testing.T, ctrl *gomock.Controller) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l, _ := test.NewNullLogger()

	tr := &testRouter{
		users:       mocks.NewMockUserServicer(ctrl),
		orders:      mocks.NewMockOrderServicer(ctrl),
		wallet:      mocks.NewMockWalletServicer(ctrl),
		uploads:     mocks.NewMockUploadServicer(ctrl),
		checkout:    mocks.NewMockCheckoutServicer(ctrl),
		advisor:     mocks.NewMockAdvisor(ctrl),
		carts:       cart.NewManager(cart.NewMemoryPersister(), time.Minute, l),
		orderStream: events.NewOrderStream(4, l),
	}
	router, err := New(RouterArgs{
		Logger:          l,
		UserService:     tr.users,
		OrderService:    tr.orders,
		WalletService:   tr.wallet,
		UploadService:   tr.uploads,
		CheckoutService: tr.checkout,
		Advisor:         tr.advisor,
		Carts:           tr.carts,
		OrderStream:     tr.orderStream,
		JWTSecretKey:    testJWTSecret,
	})
	require.NoError(t, err)
	tr.router = router
	return tr
}

func userToken(t *testing.T, id string, role domain.RoleType) string {
	t.Helper()
	token, err := tokens.GenerateUserJWT(id, role, time.Hour, testJWTSecret)
	require.NoError(t, err)
	return token
}

// do выполняет запрос и разбирает конверт ответа. data может быть nil.
func (tr *testRouter) do(
	t *testing.T,
	method, url string,
	body any,
	token string,
	data any,
) (int, *testutils.Envelope) {
	t.Helper()
	args := testutils.RequestArgs{
		Router: tr.router,
		Method: method,
		URL:    RouteGroup + url,
	}
	opts := []func(*testutils.RequestOptions){testutils.WithBearer(token)}
	if body != nil {
		args.Body = testutils.JSONBody(body)
		opts = append(opts, testutils.WithHeader("Content-Type", "application/json"))
	}

	res, err := testutils.MakeRequest(args, opts...)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, res.Body.Close())
	}()

	if res.StatusCode == http.StatusNoContent {
		return res.StatusCode, nil
	}
	env, err := testutils.DecodeEnvelope(res, data)
	require.NoError(t, err)
	return res.StatusCode, env
}
