package iot

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot/mocks"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

const testKeyHex = "603deb1015ca71be2b73aef0857d77811f352c073b6108d72d9810a30914dff4"

func testCipher(t *testing.T) *channel.Cipher {
	t.Helper()
	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)
	c, err := channel.New(key)
	require.NoError(t, err)
	return c
}

// GetMockIOTWithSqliteDialector builds an IOT over a fresh sqlite file, with
// the ingest and alert services optionally replaced by mocks.
func GetMockIOTWithSqliteDialector(t *testing.T, useMockIIngest, useMockIAlert bool) (
	*gomock.Controller,
	*IOT,
	*mocks.MockIIngest,
	*mocks.MockIAlert,
) {
	ctrl := gomock.NewController(t)

	mockIIngest := mocks.NewMockIIngest(ctrl)
	mockIAlert := mocks.NewMockIAlert(ctrl)

	dbInstance, err := db.Open(db.UseSqliteDialector(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	iotInstance := (&IOT{Db: *dbInstance, Cipher: testCipher(t)}).WithDefaultServices()

	if useMockIIngest {
		iotInstance.Ingest = mockIIngest
	}
	if useMockIAlert {
		iotInstance.Alert = mockIAlert
	}

	return ctrl, iotInstance, mockIIngest, mockIAlert
}

func newTestIOT(t *testing.T) *IOT {
	t.Helper()
	_, iotObj, _, _ := GetMockIOTWithSqliteDialector(t, false, false)
	return iotObj
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func ptr(v float64) *float64 { return &v }

var scenarioTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

const scenarioPayload = `{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi-42"},"locations":[{"location_name":"bedA","soil_moisture":55.0}],"temperature":22.5,"air_humidity":60.0}`

func encryptJSON(t *testing.T, c *channel.Cipher, v any) string {
	t.Helper()
	var body []byte
	switch b := v.(type) {
	case string:
		body = []byte(b)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	wire, err := c.Encrypt(body)
	require.NoError(t, err)
	return wire
}

func decryptAck(t *testing.T, c *channel.Cipher, wire string) Ack {
	t.Helper()
	plaintext, err := c.Decrypt(wire)
	require.NoError(t, err)
	var ack Ack
	require.NoError(t, json.Unmarshal(plaintext, &ack))
	return ack
}

// ingestReport pushes a report through the full envelope path.
func ingestReport(t *testing.T, iotObj *IOT, report *payload.Report) Ack {
	t.Helper()
	wire, err := iotObj.HandleEnvelope(context.Background(), encryptJSON(t, iotObj.Cipher, report))
	require.NoError(t, err)
	return decryptAck(t, iotObj.Cipher, wire)
}

func count(t *testing.T, iotObj *IOT, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, iotObj.Db.Conn.Model(model).Count(&n).Error)
	return n
}

func deviceByName(t *testing.T, iotObj *IOT, name string) models.Device {
	t.Helper()
	var device models.Device
	require.NoError(t, iotObj.Db.Conn.Where("device_id = ?", name).First(&device).Error)
	return device
}

// createUser adds a non-privileged user holding the given groups.
func createUser(t *testing.T, iotObj *IOT, username string, role models.Role, groupIDs ...uint) models.Caller {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, iotObj.Db.Conn.Create(&user).Error)
	for _, gid := range groupIDs {
		require.NoError(t, iotObj.Db.Conn.Create(&models.UserGroup{UserID: user.ID, GroupID: gid}).Error)
	}
	return models.Caller{UserID: user.ID, Username: user.Username, Role: role}
}

var staff = models.Caller{UserID: 9999, Username: "staff", Role: models.RoleStaff}
