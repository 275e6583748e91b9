package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-inventory/internal/models"
	"ms-inventory/internal/notifier"
)

// MockAvailabilityCounter is a mock implementation of the AvailabilityCounter interface
type MockAvailabilityCounter struct {
	mock.Mock
}

func (m *MockAvailabilityCounter) CountAvailable(ctx context.Context, eventID string) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

// capturingPublisher records every published payload.
type capturingPublisher struct {
	channels []string
	payloads [][]byte
	err      error
}

func (p *capturingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestCheckSoldOutPublishesWhenEmpty(t *testing.T) {
	mockStore := new(MockAvailabilityCounter)
	mockStore.On("CountAvailable", mock.Anything, "E00001").Return(0, nil)
	publisher := &capturingPublisher{}

	n := notifier.NewNotifier(mockStore, publisher, "", nil)

	available, isFull := n.CheckSoldOut(context.Background(), "E00001", "Summer Fest")
	assert.Equal(t, 0, available)
	assert.True(t, isFull)

	// Exactly one broadcast, on the default channel, carrying the
	// sold-out notification envelope.
	assert.Len(t, publisher.payloads, 1)
	assert.Equal(t, notifier.DefaultChannel, publisher.channels[0])

	var envelope struct {
		Event string                     `json:"event"`
		Data  models.SoldOutNotification `json:"data"`
	}
	err := json.Unmarshal(publisher.payloads[0], &envelope)
	assert.NoError(t, err)
	assert.Equal(t, notifier.EventSoldOut, envelope.Event)
	assert.Equal(t, "E00001", envelope.Data.EventID)
	assert.Equal(t, "Summer Fest", envelope.Data.EventName)
	assert.Equal(t, "Event E00001 is sold out!", envelope.Data.Message)
}

func TestCheckSoldOutSilentWhenStockRemains(t *testing.T) {
	mockStore := new(MockAvailabilityCounter)
	mockStore.On("CountAvailable", mock.Anything, "E00001").Return(4, nil)
	publisher := &capturingPublisher{}

	n := notifier.NewNotifier(mockStore, publisher, "", nil)

	available, isFull := n.CheckSoldOut(context.Background(), "E00001", "Summer Fest")
	assert.Equal(t, 4, available)
	assert.False(t, isFull)
	assert.Empty(t, publisher.payloads)
}

func TestCheckSoldOutSwallowsCountError(t *testing.T) {
	mockStore := new(MockAvailabilityCounter)
	mockStore.On("CountAvailable", mock.Anything, "E00001").Return(0, errors.New("connection reset"))
	publisher := &capturingPublisher{}

	n := notifier.NewNotifier(mockStore, publisher, "", nil)

	available, isFull := n.CheckSoldOut(context.Background(), "E00001", "Summer Fest")
	assert.Equal(t, 0, available)
	assert.False(t, isFull)
	assert.Empty(t, publisher.payloads)
}

func TestCheckSoldOutSwallowsPublishError(t *testing.T) {
	mockStore := new(MockAvailabilityCounter)
	mockStore.On("CountAvailable", mock.Anything, "E00001").Return(0, nil)
	publisher := &capturingPublisher{err: errors.New("redis down")}

	n := notifier.NewNotifier(mockStore, publisher, "", nil)

	// The event is still full; the failed broadcast never surfaces.
	available, isFull := n.CheckSoldOut(context.Background(), "E00001", "Summer Fest")
	assert.Equal(t, 0, available)
	assert.True(t, isFull)
}

func TestNotifierCustomChannel(t *testing.T) {
	mockStore := new(MockAvailabilityCounter)
	mockStore.On("CountAvailable", mock.Anything, "E00001").Return(0, nil)
	publisher := &capturingPublisher{}

	n := notifier.NewNotifier(mockStore, publisher, "ops-alerts", nil)

	n.CheckSoldOut(context.Background(), "E00001", "Summer Fest")
	assert.Equal(t, []string{"ops-alerts"}, publisher.channels)
}
