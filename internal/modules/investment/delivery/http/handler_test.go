package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/investment/service"
	"anoa.com/sparkvest/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmRouter(investor *entity.User, flows flow.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewInvestmentService(nil, nil, flows, nil, nil, nil, nil, "INR")
	h := NewInvestmentHandler(svc)

	r := gin.New()
	r.POST("/payments/confirm", func(c *gin.Context) {
		c.Set(middleware.ContextUser, investor)
		c.Next()
	}, h.Confirm)
	return r
}

func startPayment(t *testing.T, flows flow.Store, investor *entity.User) *flow.Flow {
	t.Helper()
	pending := &flow.Flow{
		Kind:      flow.KindPayment,
		UserID:    investor.ID,
		OrderID:   "order_123",
		ProjectID: uuid.New(),
		Amount:    250,
	}
	require.NoError(t, flows.Start(context.Background(), pending))
	return pending
}

func postConfirm(r *gin.Engine, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConfirmIncompletePaymentConsumesFlow(t *testing.T) {
	investor := &entity.User{ID: uuid.New(), Username: "ivan", Role: entity.RoleInvestor}
	flows := flow.NewMemoryStore(10 * time.Minute)
	pending := startPayment(t, flows, investor)
	r := confirmRouter(investor, flows)

	w := postConfirm(r, map[string]string{
		"flow_token":          pending.Token,
		"razorpay_payment_id": "pay_1",
		"razorpay_order_id":   "order_123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid payment response")

	_, err := flows.Get(context.Background(), pending.Token, flow.KindPayment)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)

	w = postConfirm(r, map[string]string{
		"flow_token":          pending.Token,
		"razorpay_payment_id": "pay_1",
		"razorpay_order_id":   "order_123",
		"razorpay_signature":  "sig",
	})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestConfirmWithoutFlowTokenIsRejected(t *testing.T) {
	investor := &entity.User{ID: uuid.New(), Username: "ivan", Role: entity.RoleInvestor}
	flows := flow.NewMemoryStore(10 * time.Minute)
	pending := startPayment(t, flows, investor)
	r := confirmRouter(investor, flows)

	w := postConfirm(r, map[string]string{"razorpay_payment_id": "pay_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := flows.Get(context.Background(), pending.Token, flow.KindPayment)
	assert.NoError(t, err)
}
