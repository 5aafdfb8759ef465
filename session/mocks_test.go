package session

import (
	"context"
	"errors"
	"sync"
	"time"
	"wordchain/domain"
	"wordchain/game"

	"github.com/stretchr/testify/mock"
)

// --- Connection ---

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Close(code string) {
	m.Called(code)
}

func (m *MockConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

var errConnClosed = errors.New("connection closed")

// fakeConn is an in-memory Connection: the test writes client frames to in
// and reads server frames from out.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu        sync.Mutex
	closeCode string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-f.in:
		return data, nil
	case <-f.closed:
		return nil, errConnClosed
	}
}

func (f *fakeConn) Write(data []byte) error {
	select {
	case <-f.closed:
		return errConnClosed
	case f.out <- data:
		return nil
	}
}

func (f *fakeConn) Ping() error {
	return nil
}

func (f *fakeConn) Close(code string) {
	f.once.Do(func() {
		f.mu.Lock()
		f.closeCode = code
		f.mu.Unlock()
		close(f.closed)
	})
}

func (f *fakeConn) code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

// --- Repositories ---

type MockBanRepo struct {
	mock.Mock
}

func (m *MockBanRepo) IsBanned(ctx context.Context, userId int64) (bool, error) {
	args := m.Called(ctx, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockBanRepo) BanUser(ctx context.Context, userId int64, reason string) error {
	args := m.Called(ctx, userId, reason)
	return args.Error(0)
}

type MockReportRepo struct {
	mock.Mock
}

func (m *MockReportRepo) CreateReport(ctx context.Context, report domain.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepo) CountReports(ctx context.Context, userId int64) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}

type MockGameLog struct {
	mock.Mock
}

func (m *MockGameLog) SaveGameResult(ctx context.Context, record domain.GameRecord) (int64, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(int64), args.Error(1)
}

type MockBanNotifier struct {
	mock.Mock
}

func (m *MockBanNotifier) PublishBan(ctx context.Context, userId int64) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

// --- Dictionary ---

type MockDictionary struct {
	mock.Mock
}

func (m *MockDictionary) LookupDefinition(ctx context.Context, word string) (*game.Definition, error) {
	args := m.Called(ctx, word)
	def, _ := args.Get(0).(*game.Definition)
	return def, args.Error(1)
}

func (m *MockDictionary) FindWordsStartingWith(ctx context.Context, syllable string, minLength, maxLength int) ([]string, error) {
	args := m.Called(ctx, syllable, minLength, maxLength)
	words, _ := args.Get(0).([]string)
	return words, args.Error(1)
}

// --- Clock ---

type manualTicker struct {
	c    chan time.Time
	stop chan struct{}
	once sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time, 1), stop: make(chan struct{})}
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// manualClock never ticks on its own.
type manualClock struct {
	now time.Time
}

func (c manualClock) Now() time.Time {
	return c.now
}

func (c manualClock) NewTicker(time.Duration) game.Ticker {
	return newManualTicker()
}
