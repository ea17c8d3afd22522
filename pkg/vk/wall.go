// Package vk defines the wall methods and item shapes consumed from the VK API.
package vk

import (
	"net/url"
	"strconv"

	"github.com/Sternrassler/vk-wall-counter/pkg/client"
)

// VK method names.
const (
	MethodWallGet         = "wall.get"
	MethodWallGetComments = "wall.getComments"
)

// Post is a wall post. Only the ID and comment counter are consumed.
type Post struct {
	ID       int64    `json:"id"`
	OwnerID  int64    `json:"owner_id"`
	Comments Comments `json:"comments"`
}

// Comments is the comment counter embedded in a post.
type Comments struct {
	Count int `json:"count"`
}

// HasComments reports whether the post announces any comments.
func (p Post) HasComments() bool {
	return p.Comments.Count > 0
}

// Comment is a wall comment. A missing text field decodes to "".
type Comment struct {
	ID     int64  `json:"id"`
	FromID int64  `json:"from_id"`
	Text   string `json:"text"`
}

// WallGet lists the posts published by the wall owner itself.
func WallGet(ownerID int64) client.Operation {
	return client.NewOperation(MethodWallGet, url.Values{
		"owner_id": {strconv.FormatInt(ownerID, 10)},
		"filter":   {"owner"},
	})
}

// WallGetComments lists the comments of one post, oldest first.
func WallGetComments(ownerID, postID int64) client.Operation {
	return client.NewOperation(MethodWallGetComments, url.Values{
		"owner_id": {strconv.FormatInt(ownerID, 10)},
		"post_id":  {strconv.FormatInt(postID, 10)},
		"sort":     {"asc"},
	})
}
