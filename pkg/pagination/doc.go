// Package pagination provides offset pagination for VK list methods.
//
// VK list methods (wall.get, wall.getComments) take count and offset
// parameters and return {"count": total, "items": [...]}. The total is read
// from the first page only; later pages are requested at offsets
// pageSize, 2*pageSize, ... until the total is covered.
//
// Example usage:
//
//	p := pagination.New(retryingCaller, pagination.DefaultPageSize, reporter)
//	op := client.NewOperation("wall.get", url.Values{"owner_id": {"-1"}})
//	posts, err := pagination.CollectAs[vk.Post](ctx, p, op)
//
// A run issues exactly ceil(total/pageSize) calls, or one call when the
// total is zero. Pages are never fetched concurrently; parallelism across
// collections is the job of package workerpool.
package pagination
