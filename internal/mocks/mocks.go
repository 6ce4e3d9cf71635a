package mocks

import (
	"context"

	"github.com/saeedj2446/barton-back-sub003/internal/gateway"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

// MockDriver stands in for a payment gateway in settlement tests.
type MockDriver struct {
	mock.Mock
	DriverName string
}

func (m *MockDriver) Name() string {
	if m.DriverName != "" {
		return m.DriverName
	}
	return "mock"
}

func (m *MockDriver) InitiatePayment(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitiateResult), args.Error(1)
}

func (m *MockDriver) VerifyPayment(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyResult), args.Error(1)
}

func (m *MockDriver) RefundPayment(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

func (m *MockDriver) PaymentStatus(ctx context.Context, gatewayReference string) (*gateway.StatusResult, error) {
	args := m.Called(ctx, gatewayReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResult), args.Error(1)
}

var _ gateway.Driver = (*MockDriver)(nil)
