// Package pagination provides bounded parallel fetching for paginated xMatters endpoints.
//
// xMatters list endpoints accept offset and limit query parameters and report the
// number of matching records in the "total" field of every page. Callers fetch the
// first page themselves, read the total, and hand the remaining offsets to this
// package, which fans them out over a fixed number of workers and joins the result.
//
// Example usage:
//
//	first, err := people.ListPeople(ctx, pagination.NewPageRequest(query, 0, pageSize))
//	if err != nil {
//		return err
//	}
//	rest, err := pagination.FetchRemaining(ctx, people.ListPeople, first.Total, pageSize, query, 5)
//	if err != nil {
//		return err // invalid arguments only; page failures are in rest.Errors
//	}
//
// Guarantees:
//   - pages at offsets pageSize, 2*pageSize, ... below total are fetched exactly once
//   - at most workers fetches are in flight at any time
//   - a failed page is recorded in Result.Errors and never aborts its siblings
//   - records keep the server's order within a page; pages merge in completion order
//
// Dispatch is the generic worker pool underneath and is also used for batched writes.
package pagination
