package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestShow_FanOut(t *testing.T) {
	r := NewRegistry()

	const n = 4
	received := make([][]Toast, n)
	for i := 0; i < n; i++ {
		i := i
		r.Subscribe(func(t Toast) { received[i] = append(received[i], t) })
	}

	first := r.Show(Toast{Title: "Order placed", Type: TypeSuccess})
	second := r.Show(Toast{Title: "Order placed", Type: TypeSuccess})

	assert.NotEqual(t, first.ID, second.ID)
	for i := 0; i < n; i++ {
		require.Len(t, received[i], 2)
		assert.Equal(t, first, received[i][0])
		assert.Equal(t, second, received[i][1])
	}
}

func TestShow_Defaults(t *testing.T) {
	r := NewRegistry()
	got := r.Show(Toast{Description: "hello"})
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, DefaultDuration, got.Duration)
	assert.Equal(t, int64(5000), got.DurationMillis())
	assert.Equal(t, TypeDefault, got.Type)

	custom := r.Show(Toast{Duration: time.Second})
	assert.Equal(t, time.Second, custom.Duration)
}

func TestShow_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.Subscribe(func(Toast) { order = append(order, "a") })
	r.Subscribe(func(Toast) { order = append(order, "b") })
	r.Subscribe(func(Toast) { order = append(order, "c") })

	r.Show(Toast{})
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	r := NewRegistry()
	var calls []string
	var unsubB func()

	r.Subscribe(func(Toast) {
		calls = append(calls, "a")
		unsubB()
	})
	unsubB = r.Subscribe(func(Toast) { calls = append(calls, "b") })

	r.Show(Toast{})
	assert.Equal(t, []string{"a", "b"}, calls, "delivery uses the subscriber snapshot")

	r.Show(Toast{})
	assert.Equal(t, []string{"a", "b", "a"}, calls)

	unsubB()
}

func TestNoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { NewRegistry().Show(Toast{Title: "nobody listening"}) })
}

func TestTrays_ExpireAndDismiss(t *testing.T) {
	r := NewRegistry()
	trays := NewTrays()
	defer trays.Close()
	r.Subscribe(trays.Add)

	short := r.Show(Toast{Audience: "s1", Title: "short", Duration: 20 * time.Millisecond})
	long := r.Show(Toast{Audience: "s1", Title: "long", Duration: time.Minute})
	other := r.Show(Toast{Audience: "s2", Title: "elsewhere", Duration: time.Minute})

	assert.Equal(t, []Toast{short, long}, trays.Visible("s1"))
	assert.Equal(t, []Toast{other}, trays.Visible("s2"))

	assert.Eventually(t, func() bool {
		return len(trays.Visible("s1")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Toast{long}, trays.Visible("s1"))

	assert.True(t, trays.Dismiss("s1", long.ID))
	assert.False(t, trays.Dismiss("s1", long.ID))
	assert.False(t, trays.Dismiss("s1", other.ID), "toasts are scoped to their audience")
	assert.Empty(t, trays.Visible("s1"))
}

func TestLogSubscriber(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRegistry()
	r.Subscribe(LogSubscriber(zap.New(core)))

	toast := r.Error("s1", "Upload failed", "try again")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, toast.ID, entries[0].ContextMap()["id"])
	assert.Equal(t, "error", entries[0].ContextMap()["type"])
}
