package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-hub/internal/config"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	args := m.Called(ctx, technician, req)
	return args.Error(0)
}

func testTechnician() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      models.RoleTechnician,
	}
}

func testRequest() *models.MaintenanceRequest {
	due := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	return &models.MaintenanceRequest{
		ID:            primitive.NewObjectID(),
		RequestNumber: "MR-202610-0007",
		Title:         "Compressor noise",
		Description:   "Rattling at startup",
		Type:          models.TypeCorrective,
		Priority:      models.PriorityHigh,
		Status:        models.StatusAssigned,
		DueDate:       &due,
	}
}

// fakeToken is a completed or pending mqtt.Token.
type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	mu       sync.Mutex
	topic    string
	qos      byte
	payload  []byte
	response mqtt.Token
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.qos = qos
	p.payload = payload.([]byte)
	return p.response
}

func TestMQTTNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{response: completedToken(nil)}
	n := newMQTTNotifier(pub, "cmms", 1)
	tech, req := testTechnician(), testRequest()

	require.NoError(t, n.NotifyAssignment(context.Background(), tech, req))

	assert.Equal(t, "cmms/technicians/"+tech.ID.Hex()+"/assignments", pub.topic)
	assert.Equal(t, byte(1), pub.qos)

	var event AssignmentEvent
	require.NoError(t, json.Unmarshal(pub.payload, &event))
	assert.Equal(t, "assignment", event.Event)
	assert.Equal(t, "MR-202610-0007", event.RequestNumber)
	assert.Equal(t, "Jane Doe", event.TechnicianName)
	assert.Equal(t, req.ID.Hex(), event.RequestID)
}

func TestMQTTNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{response: completedToken(errors.New("not connected"))}
	n := newMQTTNotifier(pub, "cmms", 0)

	err := n.NotifyAssignment(context.Background(), testTechnician(), testRequest())
	assert.ErrorContains(t, err, "not connected")
}

func TestMQTTNotifier_ContextCancelled(t *testing.T) {
	pub := &fakePublisher{response: &fakeToken{done: make(chan struct{})}}
	n := newMQTTNotifier(pub, "cmms", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.NotifyAssignment(ctx, testTechnician(), testRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPNotifier(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n := NewSMTPNotifier(config.SMTPConfig{Host: "mail.example.com", Port: 2525, From: "cmms@example.com"})
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, n.NotifyAssignment(context.Background(), testTechnician(), testRequest()))
	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Equal(t, []string{"jdoe@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: [High] MR-202610-0007 assigned to you")
	assert.Contains(t, gotMsg, "Hello Jane Doe")
	assert.Contains(t, gotMsg, "Due:      2026-10-17 12:00 UTC")
}

func TestSMTPNotifier_Errors(t *testing.T) {
	n := NewSMTPNotifier(config.SMTPConfig{Host: "mail.example.com", Port: 25})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	tech := testTechnician()
	assert.ErrorContains(t, n.NotifyAssignment(context.Background(), tech, testRequest()), "connection refused")

	tech.Email = ""
	assert.ErrorIs(t, n.NotifyAssignment(context.Background(), tech, testRequest()), ErrNoRecipient)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &MockNotifier{}
	failing := &MockNotifier{}
	ok.On("NotifyAssignment", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	failing.On("NotifyAssignment", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := Multi{ok, failing}.NotifyAssignment(context.Background(), testTechnician(), testRequest())
	assert.ErrorContains(t, err, "broker down")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)

	assert.NoError(t, Multi{ok}.NotifyAssignment(context.Background(), testTechnician(), testRequest()))
}

func TestDispatcher_NeverBlocksOrFails(t *testing.T) {
	release := make(chan struct{})
	next := &MockNotifier{}
	next.On("NotifyAssignment", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(errors.New("smtp unreachable"))

	d := NewDispatcher(next, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	err := d.NotifyAssignment(ctx, testTechnician(), testRequest())
	assert.NoError(t, err)
	cancel()

	close(release)
	d.Wait()
	next.AssertNumberOfCalls(t, "NotifyAssignment", 1)
}

func TestDispatcher_DetachesFromCallerCancellation(t *testing.T) {
	var sendErr error
	next := &MockNotifier{}
	next.On("NotifyAssignment", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sendErr = args.Get(0).(context.Context).Err()
		}).
		Return(nil)

	d := NewDispatcher(next, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.NotifyAssignment(ctx, testTechnician(), testRequest()))
	d.Wait()
	assert.NoError(t, sendErr)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	next := &MockNotifier{}
	next.On("NotifyAssignment", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("boom") }).
		Return(nil)

	d := NewDispatcher(next, 0)
	require.NoError(t, d.NotifyAssignment(context.Background(), testTechnician(), testRequest()))
	d.Wait()
}

func TestFromConfig_DefaultsToLog(t *testing.T) {
	n, closeFn, err := FromConfig(&config.Config{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, LogNotifier{}, n)

	n, closeFn, err = FromConfig(&config.Config{SMTP: config.SMTPConfig{Enabled: true, Host: "localhost", Port: 25}})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &SMTPNotifier{}, n)
}

func TestAssignmentEvent_UsesUsernameFallback(t *testing.T) {
	tech := testTechnician()
	tech.FirstName, tech.LastName = "", ""
	event := NewAssignmentEvent(tech, testRequest(), time.Now())
	assert.True(t, strings.EqualFold(event.TechnicianName, "jdoe"))
}
