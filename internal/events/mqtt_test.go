package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	sent  []published
	token *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func testBooking() *schedule.Booking {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return &schedule.Booking{
		ID:          "b-1",
		SchoolID:    "school-1",
		Type:        schedule.TypePracticalLesson,
		Status:      schedule.StatusScheduled,
		ResourceIDs: []string{"inst-1", "car-1"},
		StudentID:   "stu-1",
		Interval:    schedule.Interval{Start: start, End: start.Add(90 * time.Minute)},
		UpdatedAt:   start.Add(-time.Hour),
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "schools/s1/bookings/created", Topic("schools", "s1", BookingCreated))
	assert.Equal(t, "x/s1/bookings/canceled", Topic("x", "s1", BookingCanceled))
}

func TestMQTTPublisherPublish(t *testing.T) {
	client := &fakeClient{token: newToken(nil, true)}
	p := &MQTTPublisher{client: client, prefix: "schools"}

	err := p.Publish(context.Background(), FromBooking(BookingCreated, testBooking(), "secretary"))
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "schools/school-1/bookings/created", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got Event
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, BookingCreated, got.Type)
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, []string{"inst-1", "car-1"}, got.ResourceIDs)
	assert.Equal(t, "practical_lesson", got.BookingType)
	assert.Equal(t, "secretary", got.Actor)
}

func TestMQTTPublisherErrors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		p := &MQTTPublisher{client: &fakeClient{token: newToken(errors.New("not connected"), true)}, prefix: "schools"}
		err := p.Publish(context.Background(), FromBooking(BookingCanceled, testBooking(), "a"))
		assert.ErrorContains(t, err, "not connected")
	})

	t.Run("context canceled", func(t *testing.T) {
		p := &MQTTPublisher{client: &fakeClient{token: newToken(nil, false)}, prefix: "schools"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Publish(ctx, FromBooking(BookingCanceled, testBooking(), "a"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	p.Close()
}
