package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToast_ShowAndDismiss(t *testing.T) {
	t.Parallel()
	toast := NewToast()
	assert.False(t, toast.IsVisible())

	cmd := toast.Show("Setup complete", false)
	require.NotNil(t, cmd)
	assert.True(t, toast.IsVisible())
	assert.Equal(t, "Setup complete", toast.Message())

	toast.Update(ToastDismissMsg{seq: toast.seq})
	assert.False(t, toast.IsVisible())
	assert.Empty(t, toast.Message())
}

func TestToast_StaleTimerIgnored(t *testing.T) {
	t.Parallel()
	toast := NewToast()

	toast.Show("first", false)
	stale := ToastDismissMsg{seq: toast.seq}
	toast.Show("second", true)

	toast.Update(stale)
	assert.True(t, toast.IsVisible())
	assert.Equal(t, "second", toast.Message())
}
