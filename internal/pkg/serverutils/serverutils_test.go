package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studymate-be/internal/constant"
	"studymate-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func newErrorApp(err error) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(ctx *fiber.Ctx) error { return err })
	return app
}

func TestErrorHandler_MapsKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid upload", apperr.InvalidUpload("not a pdf"), 400},
		{"extraction", apperr.New(apperr.KindExtractionFailed, "empty"), 422},
		{"not found", apperr.NotFound("no book"), 404},
		{"inference", apperr.New(apperr.KindInferenceFailed, "down"), 502},
		{"timeout", apperr.New(apperr.KindInferenceTimeout, "slow"), 504},
		{"synthesis", apperr.New(apperr.KindSynthesisFailed, "quota"), 502},
		{"internal", apperr.New(apperr.KindInternal, "disk"), 500},
		{"plain", errors.New("boom"), 500},
		{"fiber", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newErrorApp(tt.err).Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestErrorHandler_NotFoundCarriesRedirect(t *testing.T) {
	resp, err := newErrorApp(apperr.NotFound("book gone")).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	body := decode(t, resp)
	assert.Equal(t, NotFoundRedirect, body["redirect"])
	assert.Equal(t, "book gone", body["message"])
}

func TestErrorHandler_ExposesDetails(t *testing.T) {
	appErr := apperr.New(apperr.KindExtractionFailed, "no text").WithDetail("book_id", "20260314_092653.000000_scan.pdf")
	resp, err := newErrorApp(appErr).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, map[string]any{"book_id": "20260314_092653.000000_scan.pdf"}, body["errors"])
}

type askRequest struct {
	Question string `validate:"required,max=10"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(askRequest{Question: "why?"}))

	err := ValidateRequest(askRequest{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Question", ve.Fields[0].Field)
	assert.Equal(t, "required", ve.Fields[0].Rule)

	resp, _ := newErrorApp(err).Test(httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 422, resp.StatusCode)
}

func newSessionApp() *fiber.App {
	app := fiber.New()
	app.Use(SessionMiddleware("secret", time.Hour, false))
	app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendString(SessionID(ctx)) })
	return app
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == constant.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSessionMiddleware_IssuesAndReusesSession(t *testing.T) {
	app := newSessionApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	first, _ := io.ReadAll(resp.Body)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, string(first))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	second, _ := io.ReadAll(resp.Body)

	assert.Equal(t, string(first), string(second))
}

func TestSessionMiddleware_RejectsForgedCookie(t *testing.T) {
	forged, err := signSessionToken("6f1d2b0e-8a44-4b1c-9d0f-3b0a0f7f5c11", []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: forged})
	resp, err := newSessionApp().Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.NotEqual(t, "6f1d2b0e-8a44-4b1c-9d0f-3b0a0f7f5c11", string(body))
}
