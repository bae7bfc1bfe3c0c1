package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sharedrive/internal/auth"
	"sharedrive/internal/logging"
	"sharedrive/internal/media"
	"sharedrive/internal/repository/memory"
	"sharedrive/internal/service"
)

type capturedMail struct {
	links []string
}

func (m *capturedMail) SendConfirmation(_ context.Context, _, link string) error {
	m.links = append(m.links, link)
	return nil
}

type testServer struct {
	handler http.Handler
	codec   *auth.ConfirmationCipher
	mail    *capturedMail
	staging string
	tokens  *auth.TokenService
}

func newTestServer(t *testing.T, tokenSecret string) *testServer {
	t.Helper()
	logger := logging.Discard()
	store := memory.NewStore()

	codec, err := auth.NewConfirmationCipher("aes-256-cbc", "0123456789abcdef0123456789abcdef", "000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	tokens := auth.NewTokenService(tokenSecret, time.Hour)
	mailer := &capturedMail{}

	staging := t.TempDir()
	stager, err := media.NewStager(staging)
	require.NoError(t, err)
	images, err := media.NewImagingTransformer(media.ImageOptions{Width: 350, BlurSigma: 1, JPEGQuality: 80})
	require.NoError(t, err)
	dict := media.NewWordList([]string{"hello", "world"}, 2)
	pipeline := media.NewPipeline(images, media.NewSpellCorrector(dict, 5, logger), logger)
	t.Cleanup(pipeline.Wait)

	users := service.NewUserService(store.Users(), tokens, codec, mailer, "http://api.test", bcrypt.MinCost, logger)
	files := service.NewFileService(store.Files(), pipeline, nil, service.FileServiceOptions{
		StagingDir:   staging,
		PublicURL:    "http://files.test",
		PublicPrefix: "/uploads",
	}, logger)

	verifier := auth.NewTokenService("secret", time.Hour)
	h := NewRouter(RouterConfig{
		StagingDir:     staging,
		PublicPrefix:   "/uploads",
		MaxUploadBytes: 1 << 20,
	}, NewUserHandler(users, logger), NewFileHandler(files, stager, logger), verifier, logger)

	return &testServer{handler: h, codec: codec, mail: mailer, staging: staging, tokens: tokens}
}

func (s *testServer) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	r := httptest.NewRequest(method, target, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type userBody struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	IsConfirmed bool   `json:"isConfirmed"`
	Password    string `json:"password"`
}

type fileBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
	FilePath    string `json:"filePath"`
}

func (s *testServer) signup(t *testing.T, username string) userBody {
	t.Helper()
	rec := s.do(t, jsonRequest(http.MethodPost, "/signup", map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"username":  username,
		"email":     username + "@example.com",
		"password":  "hunter22",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[userBody](t, rec)
}

func uploadRequest(t *testing.T, token string, fields map[string]string, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		r.Header.Set("x-access-token", token)
	}
	return r
}

func (s *testServer) upload(t *testing.T, token, name string) fileBody {
	t.Helper()
	rec := s.do(t, uploadRequest(t, token, map[string]string{"name": name, "description": "desc of " + name},
		name+".pdf", "application/pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		Data fileBody `json:"data"`
	}](t, rec).Data
}

func authed(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestSignupLoginVerify(t *testing.T) {
	s := newTestServer(t, "secret")

	user := s.signup(t, "ada")
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.Token)
	assert.Empty(t, user.Password, "password hash must not be serialized")
	require.Len(t, s.mail.links, 1)
	assert.Equal(t, "http://api.test/verify/"+s.codec.Encrypt("ada"), s.mail.links[0])

	rec := s.do(t, jsonRequest(http.MethodPost, "/login", map[string]string{"emailOrUsername": "ada@example.com", "password": "hunter22"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[userBody](t, rec).Token)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/verify/"+s.codec.Encrypt("ada"), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	verified := decode[struct {
		Message string   `json:"message"`
		Data    userBody `json:"data"`
	}](t, rec)
	assert.Equal(t, "User verified successfully", verified.Message)
	assert.True(t, verified.Data.IsConfirmed)
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t, "secret")
	s.signup(t, "ada")

	rec := s.do(t, jsonRequest(http.MethodPost, "/signup", map[string]string{
		"firstName": "A", "lastName": "B", "username": "ada2", "email": "ada@example.com", "password": "x",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"status":"fail","message":"User Already Exist. Please Login"}`, rec.Body.String())

	rec = s.do(t, jsonRequest(http.MethodPost, "/signup", map[string]string{
		"firstName": "A", "lastName": "B", "username": "ada3", "email": "ADA@Example.com", "password": "x",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code, "emails differing only in case are the same account")

	rec = s.do(t, jsonRequest(http.MethodPost, "/login", map[string]string{"emailOrUsername": "Ada@Example.COM", "password": "hunter22"}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, jsonRequest(http.MethodPost, "/signup", map[string]string{"firstName": "A"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"\"lastName\" is required"}`, rec.Body.String())

	r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader("{broken"))
	r.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(t, r).Code)
}

func TestSignupFormBody(t *testing.T) {
	s := newTestServer(t, "secret")

	body := "firstName=Grace&lastName=Hopper&username=grace&email=grace%40example.com&password=cobol"
	r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := s.do(t, r)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "grace", decode[userBody](t, rec).Username)
}

func TestSignupMissingSecret(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, jsonRequest(http.MethodPost, "/signup", map[string]string{
		"firstName": "A", "lastName": "B", "username": "ada", "email": "ada@example.com", "password": "x",
	}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server configuration error"}`, rec.Body.String())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, "secret")
	s.signup(t, "ada")

	wrongPassword := s.do(t, jsonRequest(http.MethodPost, "/login", map[string]string{"emailOrUsername": "ada", "password": "nope"}))
	unknownUser := s.do(t, jsonRequest(http.MethodPost, "/login", map[string]string{"emailOrUsername": "ghost", "password": "nope"}))

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.JSONEq(t, `{"message":"Invalid Credentials"}`, wrongPassword.Body.String())
}

func TestVerifyErrors(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/verify/"+s.codec.Encrypt("ghost"), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"User Not Found"}`, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/verify/nothex", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/file", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file", nil), "garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, uploadRequest(t, "", map[string]string{"name": "n", "description": "d"}, "a.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadByMimeType(t *testing.T) {
	s := newTestServer(t, "secret")
	token := s.signup(t, "ada").Token

	tests := []struct {
		name       string
		filename   string
		mime       string
		content    []byte
		wantSuffix string
	}{
		{name: "binary passes through", filename: "a.pdf", mime: "application/pdf", content: []byte("%PDF"), wantSuffix: ".pdf"},
		{name: "text is annotated", filename: "a.txt", mime: "text/plain", content: []byte("helo wrld"), wantSuffix: ".plain.txt"},
		{name: "undecodable image keeps path", filename: "a.png", mime: "image/png", content: []byte("not a png"), wantSuffix: ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, uploadRequest(t, token, map[string]string{"name": "n", "description": "d"}, tt.filename, tt.mime, tt.content))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			res := decode[struct {
				Message string   `json:"message"`
				Data    fileBody `json:"data"`
			}](t, rec)
			assert.Equal(t, "File uploaded successfully", res.Message)
			assert.True(t, strings.HasPrefix(res.Data.FilePath, "http://files.test/uploads/item-file-"), res.Data.FilePath)
			assert.True(t, strings.HasSuffix(res.Data.FilePath, tt.wantSuffix), res.Data.FilePath)
		})
	}
}

func TestUploadCorrectsText(t *testing.T) {
	s := newTestServer(t, "secret")
	token := s.signup(t, "ada").Token

	rec := s.do(t, uploadRequest(t, token, map[string]string{"name": "n", "description": "d"}, "a.txt", "text/plain", []byte("helo wrld")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	staged, err := filepath.Glob(filepath.Join(s.staging, "item-file-*.plain"))
	require.NoError(t, err)
	require.Len(t, staged, 1)
	data, err := os.ReadFile(staged[0])
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/"+filepath.Base(staged[0]), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world\n", rec.Body.String())

	// The recorded path carries the .txt annotation; nothing is written there.
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/"+filepath.Base(staged[0])+".txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, "secret")
	token := s.signup(t, "ada").Token

	rec := s.do(t, uploadRequest(t, token, map[string]string{"name": "n"}, "a.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"\"description\" is required"}`, rec.Body.String())

	rec = s.do(t, uploadRequest(t, token, map[string]string{"name": "n", "description": "d"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"No file uploaded"}`, rec.Body.String())

	rec = s.do(t, uploadRequest(t, token, map[string]string{"name": "n", "description": "d"}, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 2<<20)))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
}

func TestFileRoutesAreOwnerScoped(t *testing.T) {
	s := newTestServer(t, "secret")
	ada := s.signup(t, "ada")
	bob := s.signup(t, "bob")

	adaFile := s.upload(t, ada.Token, "report")
	s.upload(t, bob.Token, "report")

	rec := s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file?name=REP", nil), ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[struct {
		Data []fileBody `json:"data"`
	}](t, rec).Data
	require.Len(t, found, 1)
	assert.Equal(t, adaFile.ID, found[0].ID)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file/"+ada.ID, nil), ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Data []fileBody `json:"data"`
	}](t, rec).Data, 1)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file/"+ada.ID, nil), bob.Token))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file/"+ada.ID+"/"+adaFile.ID, nil), ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "report", decode[struct {
		Data fileBody `json:"data"`
	}](t, rec).Data.Name)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file/"+bob.ID+"/"+adaFile.ID, nil), bob.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, authed(jsonRequest(http.MethodPut, "/file/"+adaFile.ID, map[string]string{"name": "stolen"}), bob.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodDelete, "/file/"+adaFile.ID, nil), bob.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t, "secret")
	ada := s.signup(t, "ada")
	file := s.upload(t, ada.Token, "report")

	rec := s.do(t, authed(jsonRequest(http.MethodPut, "/file/"+file.ID, map[string]string{}), ada.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, authed(jsonRequest(http.MethodPut, "/file/"+file.ID, map[string]string{"description": "final"}), ada.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[struct {
		Data fileBody `json:"data"`
	}](t, rec).Data
	assert.Equal(t, "report", updated.Name)
	assert.Equal(t, "final", updated.Description)

	rec = s.do(t, authed(httptest.NewRequest(http.MethodDelete, "/file/"+file.ID, nil), ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"File deleted successfully"}`, rec.Body.String())

	rec = s.do(t, authed(httptest.NewRequest(http.MethodGet, "/file/"+ada.ID+"/"+file.ID, nil), ada.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "secret")

	r := httptest.NewRequest(http.MethodOptions, "/file", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "GET")
	r.Header.Set("Access-Control-Request-Headers", "x-access-token")

	rec := s.do(t, r)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-access-token")
}
