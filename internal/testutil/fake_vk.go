// Package testutil provides testing utilities for the VK wall counter.
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/client"
	"github.com/Sternrassler/vk-wall-counter/pkg/vk"
)

// Post is a post of an in-memory wall. An empty comment string is served
// without a text field.
type Post struct {
	ID       int64
	Comments []string
}

// FakeVK is an in-memory VK API implementing client.Caller for the wall
// methods. Failures can be injected per method or per post.
type FakeVK struct {
	OwnerID int64
	Posts   []Post

	// Delay is applied to every wall.getComments call.
	Delay time.Duration

	mu          sync.Mutex
	calls       map[string]int
	offsets     map[string][]int
	failures    map[string]int
	brokenPosts map[int64]bool
	active      int
	peak        int
}

// NewFakeVK creates a fake serving posts for ownerID.
func NewFakeVK(ownerID int64, posts ...Post) *FakeVK {
	return &FakeVK{
		OwnerID:     ownerID,
		Posts:       posts,
		calls:       make(map[string]int),
		offsets:     make(map[string][]int),
		failures:    make(map[string]int),
		brokenPosts: make(map[int64]bool),
	}
}

// FailNext makes the next n calls of method return a VK error.
func (f *FakeVK) FailNext(method string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = n
}

// BreakPost makes every wall.getComments call for postID fail.
func (f *FakeVK) BreakPost(postID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokenPosts[postID] = true
}

// Calls returns the number of calls made to method.
func (f *FakeVK) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Offsets returns the offsets requested for a scope key: "wall.get" for
// posts, "wall.getComments:<postID>" for comments.
func (f *FakeVK) Offsets(scope string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets[scope]...)
}

// PeakConcurrency returns the highest number of simultaneous
// wall.getComments calls observed.
func (f *FakeVK) PeakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Call implements client.Caller.
func (f *FakeVK) Call(ctx context.Context, op client.Operation) (*client.PageResponse, error) {
	offset, _ := strconv.Atoi(op.Params.Get("offset"))
	count, _ := strconv.Atoi(op.Params.Get("count"))
	postID, _ := strconv.ParseInt(op.Params.Get("post_id"), 10, 64)

	scope := op.Method
	if op.Method == vk.MethodWallGetComments {
		scope += ":" + strconv.FormatInt(postID, 10)
	}

	f.mu.Lock()
	f.calls[op.Method]++
	f.offsets[scope] = append(f.offsets[scope], offset)
	failing := f.failures[op.Method] > 0
	if failing {
		f.failures[op.Method]--
	}
	broken := op.Method == vk.MethodWallGetComments && f.brokenPosts[postID]
	f.mu.Unlock()

	if op.Params.Get("owner_id") != strconv.FormatInt(f.OwnerID, 10) {
		return nil, &client.APIError{Code: 15, Message: "Access denied"}
	}
	if failing {
		return nil, &client.APIError{Code: 10, Message: "Internal server error"}
	}

	switch op.Method {
	case vk.MethodWallGet:
		return f.postsPage(offset, count), nil
	case vk.MethodWallGetComments:
		f.enter()
		defer f.leave()
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if broken {
			return nil, &client.APIError{Code: 10, Message: "Internal server error"}
		}
		return f.commentsPage(postID, offset, count)
	default:
		return nil, &client.APIError{Code: 3, Message: "Unknown method passed"}
	}
}

func (f *FakeVK) enter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
}

func (f *FakeVK) leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
}

func (f *FakeVK) postsPage(offset, count int) *client.PageResponse {
	page := &client.PageResponse{Count: len(f.Posts), Items: []json.RawMessage{}}
	for i := offset; i < offset+count && i < len(f.Posts); i++ {
		p := f.Posts[i]
		page.Items = append(page.Items, mustJSON(map[string]any{
			"id":       p.ID,
			"owner_id": f.OwnerID,
			"comments": map[string]int{"count": len(p.Comments)},
		}))
	}
	return page
}

func (f *FakeVK) commentsPage(postID int64, offset, count int) (*client.PageResponse, error) {
	for _, p := range f.Posts {
		if p.ID != postID {
			continue
		}
		page := &client.PageResponse{Count: len(p.Comments), Items: []json.RawMessage{}}
		for i := offset; i < offset+count && i < len(p.Comments); i++ {
			item := map[string]any{"id": i + 1, "from_id": 1}
			if p.Comments[i] != "" {
				item["text"] = p.Comments[i]
			}
			page.Items = append(page.Items, mustJSON(item))
		}
		return page, nil
	}
	return nil, &client.APIError{Code: 100, Message: "One of the parameters specified was missing or invalid: post_id"}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
