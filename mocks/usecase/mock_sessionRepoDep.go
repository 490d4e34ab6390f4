package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

// MocksessionRepoDep is a testify mock of the session repository the game manager depends on.
type MocksessionRepoDep struct {
	mock.Mock
}

// NewMocksessionRepoDep creates a mock whose expectations are asserted when the test ends.
func NewMocksessionRepoDep(t interface {
	mock.TestingT
	Cleanup(func())
}) *MocksessionRepoDep {
	m := &MocksessionRepoDep{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (_m *MocksessionRepoDep) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	ret := _m.Called(ctx, session)
	return ret.Error(0)
}

func (_m *MocksessionRepoDep) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	ret := _m.Called(ctx, id)

	var session *entity.Session
	if v := ret.Get(0); v != nil {
		session = v.(*entity.Session)
	}

	return session, ret.Error(1)
}

func (_m *MocksessionRepoDep) DeleteByID(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}
