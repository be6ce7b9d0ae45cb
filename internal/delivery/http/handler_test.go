package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/messaging"
	"github.com/egannguyen/microshop/internal/repository/memory"
	"github.com/egannguyen/microshop/internal/service"
)

type HandlerSuite struct {
	suite.Suite
	server *httptest.Server
	userID string
	lampID string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	catalog := memory.NewCatalog()
	users := memory.NewUserRepository()

	userSvc := service.NewUserService(users)
	productSvc := service.NewProductService(catalog)
	orderSvc := service.NewOrderService(memory.NewOrderRepository(), catalog, userSvc, memory.NewEventStore(), messaging.Discard{})
	notificationSvc := service.NewNotificationService(messaging.Discard{})

	user, err := userSvc.CreateUser(ctx, "alice", "alice@example.com")
	s.Require().NoError(err)
	s.userID = user.ID
	lamp, err := productSvc.CreateProduct(ctx, service.NewProduct{
		Name:     "Desk Lamp",
		Category: "Home",
		Price:    decimal.RequireFromString("89.99"),
		Stock:    5,
	})
	s.Require().NoError(err)
	s.lampID = lamp.ID

	s.server = httptest.NewServer(NewHandler(userSvc, productSvc, orderSvc, notificationSvc).Router())
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) do(method, path string, body any) (int, map[string]json.RawMessage) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func (s *HandlerSuite) decode(raw json.RawMessage, dst any) {
	s.Require().NoError(json.Unmarshal(raw, dst))
}

func (s *HandlerSuite) TestHealth() {
	status, body := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`true`, string(body["success"]))
}

func (s *HandlerSuite) TestPlaceOrderFlow() {
	status, body := s.do(http.MethodPost, "/api/orders", map[string]any{
		"user_id": s.userID,
		"items":   []map[string]any{{"product_id": s.lampID, "quantity": 2}},
	})
	s.Require().Equal(http.StatusCreated, status)
	s.JSONEq(`"Order created successfully"`, string(body["message"]))

	var order entity.Order
	s.decode(body["order"], &order)
	s.Equal(entity.StatusPending, order.Status)
	s.True(decimal.RequireFromString("179.98").Equal(order.Total))

	status, body = s.do(http.MethodGet, "/api/products/"+s.lampID, nil)
	s.Equal(http.StatusOK, status)
	var product entity.Product
	s.decode(body["product"], &product)
	s.Equal(3, product.Stock)

	status, body = s.do(http.MethodPut, "/api/orders/"+order.ID+"/status", map[string]string{"status": "shipped"})
	s.Equal(http.StatusOK, status)
	s.JSONEq(`"Order status updated successfully"`, string(body["message"]))
	s.decode(body["order"], &order)
	s.Equal(entity.StatusShipped, order.Status)

	status, body = s.do(http.MethodGet, "/api/orders/"+order.ID+"/history", nil)
	s.Equal(http.StatusOK, status)
	var history service.OrderHistory
	s.decode(body["history"], &history)
	s.Equal(2, history.Version)

	status, body = s.do(http.MethodGet, "/api/orders?user_id="+s.userID, nil)
	s.Equal(http.StatusOK, status)
	var orders []entity.Order
	s.decode(body["orders"], &orders)
	s.Len(orders, 1)
}

func (s *HandlerSuite) TestPlaceOrderErrors() {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"empty order", map[string]any{"user_id": s.userID, "items": []any{}}, http.StatusBadRequest},
		{"bad quantity", map[string]any{"user_id": s.userID, "items": []map[string]any{{"product_id": s.lampID, "quantity": 0}}}, http.StatusBadRequest},
		{"unknown user", map[string]any{"user_id": "ghost", "items": []map[string]any{{"product_id": s.lampID, "quantity": 1}}}, http.StatusNotFound},
		{"unknown product", map[string]any{"user_id": s.userID, "items": []map[string]any{{"product_id": "nope", "quantity": 1}}}, http.StatusNotFound},
		{"insufficient stock", map[string]any{"user_id": s.userID, "items": []map[string]any{{"product_id": s.lampID, "quantity": 6}}}, http.StatusConflict},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			status, body := s.do(http.MethodPost, "/api/orders", tt.body)
			s.Equal(tt.status, status)
			s.JSONEq(`false`, string(body["success"]))
			s.NotEmpty(body["error"])
		})
	}

	status, _ := s.do(http.MethodGet, "/api/products/"+s.lampID, nil)
	s.Equal(http.StatusOK, status)
}

func (s *HandlerSuite) TestInvalidBody() {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/users", bytes.NewBufferString("{"))
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestUnknownStatus() {
	status, body := s.do(http.MethodPost, "/api/orders", map[string]any{
		"user_id": s.userID,
		"items":   []map[string]any{{"product_id": s.lampID, "quantity": 1}},
	})
	s.Require().Equal(http.StatusCreated, status)
	var order entity.Order
	s.decode(body["order"], &order)

	status, _ = s.do(http.MethodPut, "/api/orders/"+order.ID+"/status", map[string]string{"status": "lost"})
	s.Equal(http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPut, "/api/orders/missing/status", map[string]string{"status": "shipped"})
	s.Equal(http.StatusNotFound, status)
}

func (s *HandlerSuite) TestUsersCRUD() {
	status, body := s.do(http.MethodPost, "/api/users", map[string]string{"username": "bob", "email": "bob@example.com"})
	s.Require().Equal(http.StatusCreated, status)
	s.JSONEq(`"User created successfully"`, string(body["message"]))
	var user entity.User
	s.decode(body["user"], &user)

	status, _ = s.do(http.MethodPost, "/api/users", map[string]string{"username": "bob", "email": "other@example.com"})
	s.Equal(http.StatusConflict, status)

	status, body = s.do(http.MethodPut, "/api/users/"+user.ID, map[string]string{"email": "robert@example.com"})
	s.Equal(http.StatusOK, status)
	s.JSONEq(`"User updated successfully"`, string(body["message"]))
	s.decode(body["user"], &user)
	s.Equal("robert@example.com", user.Email)

	status, body = s.do(http.MethodGet, "/api/users", nil)
	s.Equal(http.StatusOK, status)
	var users []entity.User
	s.decode(body["users"], &users)
	s.Len(users, 2)

	status, _ = s.do(http.MethodDelete, "/api/users/"+user.ID, nil)
	s.Equal(http.StatusOK, status)
	status, _ = s.do(http.MethodGet, "/api/users/"+user.ID, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *HandlerSuite) TestProductsCRUD() {
	status, body := s.do(http.MethodPost, "/api/products", map[string]any{
		"name": "Mechanical Keyboard", "description": "RGB", "category": "Electronics", "price": "179.99", "stock": 4,
	})
	s.Require().Equal(http.StatusCreated, status)
	s.JSONEq(`"Product created successfully"`, string(body["message"]))
	var product entity.Product
	s.decode(body["product"], &product)

	status, _ = s.do(http.MethodPost, "/api/products", map[string]any{"name": "", "price": "1"})
	s.Equal(http.StatusBadRequest, status)

	status, body = s.do(http.MethodGet, "/api/products?category=Electronics", nil)
	s.Equal(http.StatusOK, status)
	var products []entity.Product
	s.decode(body["products"], &products)
	s.Require().Len(products, 1)
	s.Equal(product.ID, products[0].ID)

	status, body = s.do(http.MethodGet, "/api/products?q=lamp", nil)
	s.Equal(http.StatusOK, status)
	s.decode(body["products"], &products)
	s.Require().Len(products, 1)
	s.Equal(s.lampID, products[0].ID)

	status, body = s.do(http.MethodPut, "/api/products/"+product.ID, map[string]any{"stock": 9})
	s.Equal(http.StatusOK, status)
	s.JSONEq(`"Product updated successfully"`, string(body["message"]))
	s.decode(body["product"], &product)
	s.Equal(9, product.Stock)

	status, body = s.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`"Product deleted successfully"`, string(body["message"]))
	status, _ = s.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *HandlerSuite) TestCORSPreflight() {
	req, err := http.NewRequest(http.MethodOptions, s.server.URL+"/api/orders", nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
	s.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}

func (s *HandlerSuite) TestNotificationStats() {
	status, body := s.do(http.MethodGet, "/api/notifications/stats", nil)
	s.Equal(http.StatusOK, status)
	var stats service.NotificationStats
	s.decode(body["stats"], &stats)
	s.Zero(stats.OrdersPlaced)
}
