package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Sternrassler/vk-wall-counter/internal/testutil"
	"github.com/Sternrassler/vk-wall-counter/pkg/client"
	"github.com/Sternrassler/vk-wall-counter/pkg/config"
	"github.com/Sternrassler/vk-wall-counter/pkg/scan"
	"github.com/Sternrassler/vk-wall-counter/pkg/vk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "integration-token"
	testOwner = -218375169
)

func newScanner(t *testing.T, mock *testutil.MockVK, token string) *scan.Scanner {
	t.Helper()

	cfg := config.Default()
	cfg.AccessToken = token
	cfg.OwnerID = testOwner
	cfg.TargetWord = "энвилоуп"
	cfg.APIBaseURL = mock.URL()
	cfg.BaseDelay = 0

	s, err := scan.NewHTTP(cfg, nil)
	require.NoError(t, err)
	return s
}

// TestFullScanFlow runs posts listing, comment pagination and counting
// against the HTTP mock.
func TestFullScanFlow(t *testing.T) {
	fake := testutil.NewFakeVK(testOwner,
		testutil.Post{ID: 10, Comments: []string{"Энвилоуп пришёл", "без слова"}},
		testutil.Post{ID: 11},
		testutil.Post{ID: 12, Comments: []string{"", "ЭНВИЛОУП и энвилоуп", "nope"}},
	)
	mock := testutil.NewMockVK(testToken, fake)
	defer mock.Close()

	res, err := newScanner(t, mock, testToken).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Occurrences)
	assert.Equal(t, 3, res.Posts)
	assert.Equal(t, 2, res.PostsWithComments)
	assert.Equal(t, 5, res.Comments)

	// 1 posts page + 1 comments page for each commented post
	assert.Equal(t, 3, mock.GetRequestCount())
	assert.Equal(t, "Bearer "+testToken, mock.LastRequestHeader.Get("Authorization"))
	assert.Equal(t, config.DefaultAPIVersion, mock.LastAPIVersion)
}

func TestFullScanFlow_Pagination(t *testing.T) {
	posts := make([]testutil.Post, 230)
	for i := range posts {
		posts[i] = testutil.Post{ID: int64(i + 1)}
	}
	comments := make([]string, 150)
	for i := range comments {
		comments[i] = fmt.Sprintf("#%d энвилоуп", i)
	}
	posts[0].Comments = comments

	fake := testutil.NewFakeVK(testOwner, posts...)
	mock := testutil.NewMockVK(testToken, fake)
	defer mock.Close()

	res, err := newScanner(t, mock, testToken).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150, res.Occurrences)
	assert.Equal(t, 230, res.Posts)
	assert.Equal(t, []int{0, 100, 200}, fake.Offsets(vk.MethodWallGet))
	assert.Equal(t, []int{0, 100}, fake.Offsets(vk.MethodWallGetComments+":1"))
}

func TestFullScanFlow_TransientErrorsRecover(t *testing.T) {
	fake := testutil.NewFakeVK(testOwner,
		testutil.Post{ID: 1, Comments: []string{"энвилоуп"}},
	)
	fake.FailNext(vk.MethodWallGet, 2)
	fake.FailNext(vk.MethodWallGetComments, 4)
	mock := testutil.NewMockVK(testToken, fake)
	defer mock.Close()

	res, err := newScanner(t, mock, testToken).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Occurrences)
	assert.Equal(t, 3, fake.Calls(vk.MethodWallGet))
	assert.Equal(t, 5, fake.Calls(vk.MethodWallGetComments))
}

func TestFullScanFlow_ServerErrorsExhaustRetries(t *testing.T) {
	fake := testutil.NewFakeVK(testOwner, testutil.Post{ID: 1, Comments: []string{"энвилоуп"}})
	mock := testutil.NewMockVK(testToken, fake)
	defer mock.Close()

	mock.SetResponse(vk.MethodWallGetComments, testutil.NewServerErrorResponse())

	_, err := newScanner(t, mock, testToken).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRetryExhausted))

	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)

	// 1 posts page + 5 attempts for the single comment thread
	assert.Equal(t, 6, mock.GetRequestCount())
}

func TestFullScanFlow_InvalidToken(t *testing.T) {
	fake := testutil.NewFakeVK(testOwner, testutil.Post{ID: 1})
	mock := testutil.NewMockVK(testToken, fake)
	defer mock.Close()

	_, err := newScanner(t, mock, "wrong-token").Run(context.Background())
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 5, apiErr.Code)

	var fetchErr *client.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, vk.MethodWallGet, fetchErr.Method)
	assert.Equal(t, 5, fetchErr.Attempts)
	assert.Equal(t, 5, mock.GetRequestCount())
}
