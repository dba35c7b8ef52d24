package queue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteActivity(t *testing.T) {
	ev := MedicationTakenEvent{
		MedicationID:   3,
		MedicationName: "Ibuprofen",
		Dosage:         "200mg",
		UserID:         9,
		TakenDate:      "2024-05-01",
		TakenAt:        time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteActivity(&buf, body))
	assert.Equal(t,
		"[2024-05-01T08:30:00Z] Medication taken | user_id=9 | medication_id=3 | medication=\"Ibuprofen\" | dosage=\"200mg\" | date=2024-05-01\n",
		buf.String())
}

func TestWriteActivityRejectsBadPayload(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteActivity(&buf, []byte("{not json")))
	assert.Error(t, WriteActivity(&buf, []byte(`{"medication_id":1}`)))
	assert.Zero(t, buf.Len())
}

func TestConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	c := &Consumer{LogPath: path}
	body := []byte(`{"medication_id":1,"user_id":2,"medication_name":"A","taken_date":"2024-05-01","taken_at":"2024-05-01T00:00:00Z"}`)

	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}
