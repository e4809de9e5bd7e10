package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/stats"
	"github.com/trezcool/duka/core/visitor"
	logsvc "github.com/trezcool/duka/services/logger"
	dummydb "github.com/trezcool/duka/storage/database/dummy"
)

const (
	testAPIKey        = "test-api-key"
	testAdminEmail    = "admin@test.test"
	testAdminPassword = "LordMuntu"
)

var errMissingTokenResp = httpErr{Message: "missing or malformed authorization header"}

type httpErr struct {
	Message string `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	auth     string // full Authorization header value
	wantCode int
	wantData []byte
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() failed: %v", err)
	}
	return &core.Config{
		Env:               "TEST",
		TestMode:          true,
		AppName:           "Duka",
		SecretKey:         []byte("secret"),
		AdminEmail:        testAdminEmail,
		AdminPasswordHash: string(hash),
		APIKeys:           []string{testAPIKey},
		SessionTTL:        time.Minute,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func newTestServer(t *testing.T) (Server, *core.Config) {
	t.Helper()

	conf := testConfig(t)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	visRepo := dummydb.NewVisitorRepository(db)
	stsRepo := dummydb.NewStatsRepository(db)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	sessions := stats.NewSessionStore(conf.SessionTTL)
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		VisitorSvc:     visitor.NewService(visRepo, nil, logger),
		StatsSvc:       stats.NewService(stsRepo, visRepo, sessions),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return srv, conf
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func getToken(t *testing.T, conf *core.Config) string {
	t.Helper()
	token, err := GenerateToken(GetAdminClaims(conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, auth string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v", err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
