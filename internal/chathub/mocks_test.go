package chathub_test

import (
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"natalk/server/internal/models"
)

// MockStore is a testify mock of the storage.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadRooms() (map[string]*models.Room, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Room), args.Error(1)
}

func (m *MockStore) SaveRooms(rooms map[string]*models.Room) error {
	args := m.Called(rooms)
	return args.Error(0)
}

func (m *MockStore) CreateLog(roomName string) error {
	args := m.Called(roomName)
	return args.Error(0)
}

func (m *MockStore) LogExists(roomName string) bool {
	args := m.Called(roomName)
	return args.Bool(0)
}

func (m *MockStore) ReadLog(roomName string) ([]models.Message, error) {
	args := m.Called(roomName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStore) AppendLog(roomName string, msg models.Message) error {
	args := m.Called(roomName, msg)
	return args.Error(0)
}

func (m *MockStore) TruncateLog(roomName string) error {
	args := m.Called(roomName)
	return args.Error(0)
}

func (m *MockStore) DeleteLog(roomName string) error {
	args := m.Called(roomName)
	return args.Error(0)
}

// newMockStore returns a store that accepts every call, for tests that only
// care about hub behavior. Tests asserting on persistence build their own.
func newMockStore() *MockStore {
	s := new(MockStore)
	s.On("SaveRooms", mock.Anything).Return(nil)
	s.On("CreateLog", mock.Anything).Return(nil)
	s.On("LogExists", mock.Anything).Return(false)
	s.On("ReadLog", mock.Anything).Return([]models.Message{}, nil)
	s.On("AppendLog", mock.Anything, mock.Anything).Return(nil)
	s.On("TruncateLog", mock.Anything).Return(nil)
	s.On("DeleteLog", mock.Anything).Return(nil)
	return s
}

// MockClient is an in-memory chathub.Client with a buffered receive channel
// so tests can inspect everything the hub pushed to it.
type MockClient struct {
	userID string
	roomID string
	admin  bool
	Recv   chan models.Event
	closed atomic.Bool
}

func newMockClient(roomID, userID string, admin bool) *MockClient {
	return &MockClient{
		userID: userID,
		roomID: roomID,
		admin:  admin,
		Recv:   make(chan models.Event, 64),
	}
}

func (c *MockClient) GetUserID() string                   { return c.userID }
func (c *MockClient) GetRoomID() string                   { return c.roomID }
func (c *MockClient) IsAdmin() bool                       { return c.admin }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.Recv }
func (c *MockClient) Run()                                {}

func (c *MockClient) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.Recv)
	}
}

func (c *MockClient) Closed() bool { return c.closed.Load() }

// Drain empties the receive channel and returns everything seen so far.
func (c *MockClient) Drain() []models.Event {
	var events []models.Event
	for {
		select {
		case ev, ok := <-c.Recv:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}
