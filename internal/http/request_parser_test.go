package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T, contentType, body string, limit int64) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/actions/test", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req, limit)
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, "application/json",
		`{"network":"BSNL","serialNo":12,"enabled":false,"vendors":["A","B"],"quarters":[{"name":"Q1"}]}`, maxActionBody)
	require.NoError(t, p.Parse())
	assert.True(t, p.IsJSON())

	assert.Equal(t, "BSNL", p.Get("network"))
	assert.Equal(t, "12", p.Get("serialNo"))
	assert.Equal(t, "false", p.Get("enabled"))
	assert.Empty(t, p.Get("missing"))

	vals := p.Values()
	assert.Equal(t, []string{"A", "B"}, vals["vendors"])
	assert.JSONEq(t, `[{"name":"Q1"}]`, vals.Get("quarters"))
}

func TestRequestBodyParser_SniffsJSONWithoutContentType(t *testing.T) {
	p := newParser(t, "", `{"username":"admin"}`, maxActionBody)
	require.NoError(t, p.Parse())
	assert.True(t, p.IsJSON())
	assert.Equal(t, "admin", p.Get("username"))
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	p := newParser(t, "application/json", `{"username":`, maxActionBody)
	assert.Error(t, p.Parse())
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "network=BSNL&vendor=A&vendor=B&password=+secret+", maxActionBody)
	require.NoError(t, p.Parse())
	assert.False(t, p.IsJSON())

	assert.Equal(t, "BSNL", p.Get("network"))
	assert.Equal(t, []string{"A", "B"}, p.Values()["vendor"])
	assert.Equal(t, " secret ", p.Get("password"), "values are not trimmed")
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "application/json", "", maxActionBody)
	require.NoError(t, p.Parse())
	assert.Empty(t, p.Get("anything"))
	assert.Empty(t, p.Values())
}

func TestRequestBodyParser_StripsControlCharacters(t *testing.T) {
	p := newParser(t, "application/json", `{"remarks":"line one\nline\u0000two\u0007"}`, maxActionBody)
	require.NoError(t, p.Parse())
	assert.Equal(t, "line one\nlinetwo", p.Get("remarks"))
}

func TestRequestBodyParser_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("serialNo", "3"))
	fw, err := mw.CreateFormFile(FileField, "invoice.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	p := newParser(t, mw.FormDataContentType(), body.String(), maxUploadBody)
	require.NoError(t, p.Parse())

	assert.Equal(t, "3", p.Get("serialNo"))
	file := p.File()
	require.NotNil(t, file)
	assert.Equal(t, "invoice.pdf", file.Filename)
	assert.Equal(t, []byte("%PDF-1.4 test"), file.Data)

	in := p.Input()
	assert.Equal(t, "3", in.Values.Get("serialNo"))
	assert.Same(t, file, in.File)
}

func TestRequestBodyParser_BodyTooLarge(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "remarks="+strings.Repeat("x", 64), 16)
	err := p.Parse()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))
}
