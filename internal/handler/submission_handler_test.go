package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chendurkumaran/Edu-resource-sub000/pkg/storage"
)

func newDownloadFixture(t *testing.T) *SubmissionHandler {
	t.Helper()
	store, err := storage.NewAttachmentStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("sub-1/essay.pdf", []byte("essay body"))
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("download-secret", time.Minute)
	return NewSubmissionHandler(nil, store, signer)
}

func performDownload(t *testing.T, h *SubmissionHandler, token string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/downloads/"+token, nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: token}}
	h.Download(c)
	return w
}

func TestSubmissionHandlerDownloadServesStoredAttachment(t *testing.T) {
	h := newDownloadFixture(t)
	token, _, err := h.signer.Generate("sub-1", "sub-1/essay.pdf")
	require.NoError(t, err)

	w := performDownload(t, h, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "essay body", w.Body.String())
}

func TestSubmissionHandlerDownloadRefusesEscapingLocator(t *testing.T) {
	h := newDownloadFixture(t)

	// Even a validly signed token never reaches outside the upload area.
	for _, locator := range []string{"/etc/passwd", "../../etc/passwd"} {
		token, _, err := h.signer.Generate("sub-1", locator)
		require.NoError(t, err)

		w := performDownload(t, h, token)
		assert.Equal(t, http.StatusNotFound, w.Code, "locator %q must not be served", locator)
	}
}

func TestSubmissionHandlerDownloadRejectsMalformedToken(t *testing.T) {
	h := newDownloadFixture(t)
	w := performDownload(t, h, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
