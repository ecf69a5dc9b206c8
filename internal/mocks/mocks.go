// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/clickassist/internal/assist"
	"github.com/xkilldash9x/clickassist/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Assist() config.AssistConfig {
	args := m.Called()
	return args.Get(0).(config.AssistConfig)
}

func (m *MockConfig) Damping() config.DampingConfig {
	args := m.Called()
	return args.Get(0).(config.DampingConfig)
}

func (m *MockConfig) Device() config.DeviceConfig {
	args := m.Called()
	return args.Get(0).(config.DeviceConfig)
}

// -- Device Capability Mocks --

// MockCursor mocks assist.Cursor.
type MockCursor struct {
	mock.Mock
}

func (m *MockCursor) Position() (assist.Point, error) {
	args := m.Called()
	return args.Get(0).(assist.Point), args.Error(1)
}

func (m *MockCursor) MoveRelative(dx, dy int) error {
	args := m.Called(dx, dy)
	return args.Error(0)
}

// MockClickEmitter mocks assist.ClickEmitter.
type MockClickEmitter struct {
	mock.Mock
}

func (m *MockClickEmitter) Press(button assist.Button) error {
	args := m.Called(button)
	return args.Error(0)
}

func (m *MockClickEmitter) Release(button assist.Button) error {
	args := m.Called(button)
	return args.Error(0)
}

// MockProbingClickEmitter is a MockClickEmitter that also implements assist.Prober.
type MockProbingClickEmitter struct {
	MockClickEmitter
}

func (m *MockProbingClickEmitter) Probe() error {
	args := m.Called()
	return args.Error(0)
}

// MockInputSource mocks assist.InputSource. Tests typically capture the
// handler with .Run on the Start expectation.
type MockInputSource struct {
	mock.Mock
}

func (m *MockInputSource) Start(ctx context.Context, handle func(assist.ButtonEvent)) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockInputSource) Close() error {
	args := m.Called()
	return args.Error(0)
}
