//nolint:errcheck
package client

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/arloliu/go-opcua/ua"
)

// MockSession implements Session interface for testing
type MockSession struct {
	mock.Mock
}

var _ Session = (*MockSession)(nil)

func (m *MockSession) Timeout() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockSession) LastResponseReceivedTime() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockSession) IsReconnecting() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSession) HasBeenClosed() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSession) Read(ctx context.Context, nodeToRead ua.ReadValueID) (*ua.DataValue, error) {
	args := m.Called(ctx, nodeToRead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ua.DataValue), args.Error(1)
}

// MockBreaker implements ChannelBreaker interface for testing
type MockBreaker struct {
	mock.Mock
}

var _ ChannelBreaker = (*MockBreaker)(nil)

func (m *MockBreaker) ForceConnectionBreak() {
	m.Called()
}

var stateReadID = ua.ReadValueID{NodeID: ua.ServerStatusStateNodeID, AttributeID: ua.AttributeValue}

func stateValue(state ua.ServerState) *ua.DataValue {
	return ua.NewDataValue(ua.NewInt32Variant(int32(state)))
}

// newIdleSession returns a session that is open and has not contacted the server for an hour.
func newIdleSession(timeout time.Duration) *MockSession {
	s := &MockSession{}
	s.On("Timeout").Return(timeout).Maybe()
	s.On("HasBeenClosed").Return(false).Maybe()
	s.On("IsReconnecting").Return(false).Maybe()
	s.On("LastResponseReceivedTime").Return(time.Now().Add(-time.Hour)).Maybe()

	return s
}
