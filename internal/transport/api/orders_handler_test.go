package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/service"
	"github.com/fsdevblog/printahead/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	tr *testRouter
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) SetupTest() {
	s.tr = newTestRouter(s.T(), gomock.NewController(s.T()))
}

func orderBody(payment domain.PaymentMethodType) map[string]any {
	return map[string]any{
		"customerName":  "Asha",
		"customerPhone": "+91 98765 43210",
		"cartItems": []map[string]any{
			{"type": "stationery", "name": "Notebook", "price": 80},
			{"type": "print", "name": "Poster", "price": 120},
			{"type": "stationery", "name": "Pens", "price": 45},
		},
		"pickupDate":    "2026-11-02",
		"pickupTime":    "10:00 AM",
		"paymentMethod": payment,
	}
}

func (s *OrderHandlerTestSuite) TestCreate() {
	userID := "user-1"
	guestOrder := testutils.FakeOrder(nil, 80, 120, 45)
	userOrder := testutils.FakeOrder(&userID, 80, 120, 45)

	s.tr.orders.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.CreateOrderArgs) (*domain.Order, error) {
			switch {
			case args.UserID == nil:
				s.Len(args.CartItems, 3)
				s.Equal(domain.PaymentMethodCash, args.PaymentMethod)
				return &guestOrder, nil
			case args.PaymentMethod == domain.PaymentMethodCredits:
				return nil, fmt.Errorf("creating order: %w", domain.ErrInsufficientCredits)
			default:
				s.Equal(userID, *args.UserID)
				return &userOrder, nil
			}
		}).Times(3)
	s.tr.orders.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("creating order: %w", domain.NewValidationError("cartItems[1].price", "is invalid"))).
		Times(1)

	token := userToken(s.T(), userID, domain.RoleCustomer)

	cases := []struct {
		name       string
		body       map[string]any
		token      string
		wantStatus int
		wantID     string
		wantError  string
	}{
		{name: "guest", body: orderBody(domain.PaymentMethodCash), wantStatus: http.StatusCreated, wantID: guestOrder.ID},
		{
			name:       "signed in",
			body:       orderBody(domain.PaymentMethodUPI),
			token:      token,
			wantStatus: http.StatusCreated,
			wantID:     userOrder.ID,
		},
		{
			name:       "insufficient credits",
			body:       orderBody(domain.PaymentMethodCredits),
			token:      token,
			wantStatus: http.StatusPaymentRequired,
			wantError:  domain.ErrInsufficientCredits.Error(),
		},
		{
			name:       "service validation",
			body:       orderBody(domain.PaymentMethodCash),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "cartItems[1].price: is invalid",
		},
		{
			name:       "unknown payment method",
			body:       orderBody("bitcoin"),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "paymentMethod: failed on the 'payment_method' rule",
		},
		{
			name:       "invalid token is not a guest",
			body:       orderBody(domain.PaymentMethodCash),
			token:      "broken",
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			var order domain.Order
			status, env := s.tr.do(s.T(), http.MethodPost, OrdersRoute, t.body, t.token, &order)
			s.Equal(t.wantStatus, status)
			s.Equal(t.wantError, env.Error)
			if t.wantID != "" {
				s.True(env.Success)
				s.Equal(t.wantID, order.ID)
				s.Equal(int64(245), order.Total)
			}
		})
	}
}

func (s *OrderHandlerTestSuite) TestIndex() {
	userID := "user-1"
	s.tr.orders.EXPECT().GetUserOrders(gomock.Any(), userID).Return(nil, nil)

	var orders []domain.Order
	status, env := s.tr.do(s.T(), http.MethodGet, OrdersRoute, nil, userToken(s.T(), userID, domain.RoleCustomer), &orders)
	s.Equal(http.StatusOK, status)
	s.JSONEq("[]", string(env.Data))

	status, _ = s.tr.do(s.T(), http.MethodGet, OrdersRoute, nil, "", nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *OrderHandlerTestSuite) TestShow() {
	owner := "owner-1"
	guestOrder := testutils.FakeOrder(nil, 10)
	ownedOrder := testutils.FakeOrder(&owner, 20)

	s.tr.orders.EXPECT().GetOrder(gomock.Any(), guestOrder.ID).Return(&guestOrder, nil).AnyTimes()
	s.tr.orders.EXPECT().GetOrder(gomock.Any(), ownedOrder.ID).Return(&ownedOrder, nil).AnyTimes()
	s.tr.orders.EXPECT().GetOrder(gomock.Any(), "missing").
		Return(nil, fmt.Errorf("getting order: %w", domain.ErrRecordNotFound)).AnyTimes()

	cases := []struct {
		name       string
		id         string
		token      string
		wantStatus int
	}{
		{name: "guest order by id", id: guestOrder.ID, wantStatus: http.StatusOK},
		{name: "owner", id: ownedOrder.ID, token: userToken(s.T(), owner, domain.RoleCustomer), wantStatus: http.StatusOK},
		{name: "admin", id: ownedOrder.ID, token: userToken(s.T(), "desk", domain.RoleAdmin), wantStatus: http.StatusOK},
		{
			name:       "another user",
			id:         ownedOrder.ID,
			token:      userToken(s.T(), "someone", domain.RoleCustomer),
			wantStatus: http.StatusNotFound,
		},
		{name: "anonymous on owned order", id: ownedOrder.ID, wantStatus: http.StatusNotFound},
		{name: "missing", id: "missing", wantStatus: http.StatusNotFound},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			status, env := s.tr.do(s.T(), http.MethodGet, "/orders/"+t.id, nil, t.token, nil)
			s.Equal(t.wantStatus, status)
			s.Equal(t.wantStatus == http.StatusOK, env.Success)
		})
	}
}

func (s *OrderHandlerTestSuite) uploadFiles(orderID string, files map[string][]byte) (int, *testutils.Envelope) {
	return s.uploadForm(orderID, files, nil)
}

func (s *OrderHandlerTestSuite) uploadForm(
	orderID string,
	files map[string][]byte,
	values map[string][]string,
) (int, *testutils.Envelope) {
	body, contentType, err := testutils.MultipartForm("files", files, values)
	s.Require().NoError(err)

	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.tr.router,
		Method: http.MethodPost,
		URL:    RouteGroup + "/orders/" + orderID + "/files",
		Body:   body,
	}, testutils.WithHeader("Content-Type", contentType))
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()
	env, err := testutils.DecodeEnvelope(res, nil)
	s.Require().NoError(err)
	return res.StatusCode, env
}

func (s *OrderHandlerTestSuite) TestUploadFiles() {
	order := testutils.FakeOrder(nil, 80)
	order.FilesExpected = 2
	s.tr.orders.EXPECT().GetOrder(gomock.Any(), order.ID).Return(&order, nil).AnyTimes()

	s.Run("all uploaded", func() {
		s.tr.uploads.EXPECT().
			UploadOrderFiles(gomock.Any(), order.ID, gomock.Len(2)).
			DoAndReturn(func(_ any, _ string, files []service.UploadFile) (*domain.Order, error) {
				for _, f := range files {
					rc, err := f.Open()
					s.Require().NoError(err)
					content, err := io.ReadAll(rc)
					s.Require().NoError(err)
					s.Require().NoError(rc.Close())
					s.Equal(int64(len(content)), f.Size)
				}
				return &order, nil
			})

		status, env := s.uploadFiles(order.ID, map[string][]byte{
			"report.pdf": []byte("%PDF-1.4 report"),
			"poster.png": []byte("png"),
		})
		s.Equal(http.StatusOK, status)
		s.True(env.Success)
	})

	s.Run("partial failure", func() {
		s.tr.uploads.EXPECT().
			UploadOrderFiles(gomock.Any(), order.ID, gomock.Len(2)).
			Return(&order, &domain.PartialUploadError{Failed: []domain.FailedUpload{
				{FileName: "poster.png", Key: "6f1d2c3b-0a4e-4c5d-8e9f-a1b2c3d4e5f6", Err: errors.New("timeout")},
			}})

		status, env := s.uploadFiles(order.ID, map[string][]byte{
			"report.pdf": []byte("%PDF-1.4 report"),
			"poster.png": []byte("png"),
		})
		s.Equal(http.StatusMultiStatus, status)
		s.False(env.Success)
		s.Contains(env.Error, "poster.png")

		var data struct {
			Uploaded domain.Order `json:"uploaded"`
			Failed   []struct {
				FileName string `json:"fileName"`
				Key      string `json:"key"`
			} `json:"failed"`
		}
		s.Require().NoError(json.Unmarshal(env.Data, &data))
		s.Equal(order.ID, data.Uploaded.ID)
		s.Require().Len(data.Failed, 1)
		s.Equal("poster.png", data.Failed[0].FileName)
		s.Equal("6f1d2c3b-0a4e-4c5d-8e9f-a1b2c3d4e5f6", data.Failed[0].Key)
	})

	s.Run("retry with key", func() {
		s.tr.uploads.EXPECT().
			UploadOrderFiles(gomock.Any(), order.ID, gomock.Len(1)).
			DoAndReturn(func(_ any, _ string, files []service.UploadFile) (*domain.Order, error) {
				s.Equal("poster.png", files[0].FileName)
				s.Equal("6f1d2c3b-0a4e-4c5d-8e9f-a1b2c3d4e5f6", files[0].Key)
				return &order, nil
			})

		status, env := s.uploadForm(order.ID,
			map[string][]byte{"poster.png": []byte("png")},
			map[string][]string{"keys": {"6f1d2c3b-0a4e-4c5d-8e9f-a1b2c3d4e5f6"}},
		)
		s.Equal(http.StatusOK, status)
		s.True(env.Success)
	})

	s.Run("more keys than files", func() {
		status, env := s.uploadForm(order.ID,
			map[string][]byte{"poster.png": []byte("png")},
			map[string][]string{"keys": {"a", "b"}},
		)
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("keys: must not outnumber files", env.Error)
	})

	s.Run("closed order", func() {
		s.tr.uploads.EXPECT().
			UploadOrderFiles(gomock.Any(), order.ID, gomock.Len(1)).
			Return(nil, fmt.Errorf("uploading order files: %w", domain.ErrOrderClosed))

		status, env := s.uploadFiles(order.ID, map[string][]byte{"late.pdf": []byte("x")})
		s.Equal(http.StatusConflict, status)
		s.Equal(domain.ErrOrderClosed.Error(), env.Error)
	})

	s.Run("no files", func() {
		status, env := s.uploadFiles(order.ID, map[string][]byte{})
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("files: is required", env.Error)
	})
}

func (s *OrderHandlerTestSuite) TestDraftUploads() {
	userID := "user-1"
	s.tr.uploads.EXPECT().
		UploadDraftFiles(gomock.Any(), userID, gomock.Len(1)).
		Return([]domain.FileDescriptor{{Path: "uploads/user-1/1_notes.pdf", FileName: "notes.pdf"}}, nil)

	body, contentType, err := testutils.MultipartFiles("files", map[string][]byte{"notes.pdf": []byte("x")})
	s.Require().NoError(err)
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.tr.router,
		Method: http.MethodPost,
		URL:    RouteGroup + UploadsRoute,
		Body:   body,
	},
		testutils.WithHeader("Content-Type", contentType),
		testutils.WithBearer(userToken(s.T(), userID, domain.RoleCustomer)),
	)
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()

	var files []domain.FileDescriptor
	env, err := testutils.DecodeEnvelope(res, &files)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, res.StatusCode)
	s.True(env.Success)
	s.Require().Len(files, 1)
	s.Equal("notes.pdf", files[0].FileName)
}
