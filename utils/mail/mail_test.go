package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBookingEmail(t *testing.T) {
	subject, body, err := RenderBookingEmail(BookingEmail{
		CompanyName:  "Egesha <Ltd>",
		LotName:      "Posta",
		SpotNumber:   "A7",
		LicensePlate: "T123ABC",
		Start:        "2025-03-14 10:00",
		End:          "2025-03-14 12:00",
		Cost:         2000,
		BookingID:    "b-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "New booking: spot A7 at Posta", subject)
	assert.Contains(t, body, "T123ABC")
	assert.Contains(t, body, "2000.00")
	assert.Contains(t, body, "Egesha &lt;Ltd&gt;")
	assert.NotContains(t, body, "Contact")
}

func TestNewSMTPNotifierFromEnvDisabled(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	assert.Nil(t, NewSMTPNotifierFromEnv())

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	n := NewSMTPNotifierFromEnv()
	require.NotNil(t, n)
	assert.Equal(t, 465, n.Port)
}
